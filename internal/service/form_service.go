package service

import (
	"regenai-go/internal/model"
	"regenai-go/internal/repository"
	"regenai-go/pkg/log"
)

// FormService 管理用户的土地档案，所有操作都只作用于当前用户自己的档案。
type FormService interface {
	Create(userID uint, req model.FormCreateRequest) (*model.FormResponse, error)
	List(userID uint) ([]model.FormResponse, error)
	Get(userID, formID uint) (*model.FormResponse, error)
	Update(userID, formID uint, req model.FormUpdateRequest) (*model.FormResponse, error)
	Delete(userID, formID uint) error
	Latest(userID uint) (*model.FormResponse, error)
}

type formService struct {
	formRepo repository.FormRepository
}

// NewFormService 创建一个新的 FormService 实例。
func NewFormService(formRepo repository.FormRepository) FormService {
	return &formService{formRepo: formRepo}
}

func (s *formService) Create(userID uint, req model.FormCreateRequest) (*model.FormResponse, error) {
	form := req.ToModel(userID)
	if err := s.formRepo.Create(form); err != nil {
		return nil, err
	}
	log.Infof("[FormService] 档案已创建, userID: %d, formID: %d", userID, form.ID)
	return form, nil
}

func (s *formService) List(userID uint) ([]model.FormResponse, error) {
	forms, err := s.formRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	if forms == nil {
		forms = []model.FormResponse{}
	}
	return forms, nil
}

// Get 档案不存在或属于其他用户时都返回 ErrNotFound。
func (s *formService) Get(userID, formID uint) (*model.FormResponse, error) {
	form, err := s.formRepo.FindByIDForUser(formID, userID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return form, nil
}

// Update 只修改请求中出现的字段；没有任何字段时原样返回。
func (s *formService) Update(userID, formID uint, req model.FormUpdateRequest) (*model.FormResponse, error) {
	form, err := s.Get(userID, formID)
	if err != nil {
		return nil, err
	}
	changes := req.Changes()
	if len(changes) == 0 {
		return form, nil
	}
	if err := s.formRepo.Update(form, changes); err != nil {
		return nil, err
	}
	return s.Get(userID, formID)
}

func (s *formService) Delete(userID, formID uint) error {
	return translateNotFound(s.formRepo.Delete(formID, userID))
}

// Latest 返回最新档案；没有档案时返回 nil, nil。
func (s *formService) Latest(userID uint) (*model.FormResponse, error) {
	return s.formRepo.GetLatestForUser(userID)
}
