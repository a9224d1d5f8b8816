package repository

import (
	"errors"

	"gorm.io/gorm"

	"regenai-go/internal/model"
)

// FormRepository 接口定义了土地档案的持久化操作。所有查询都限定在所属用户内。
type FormRepository interface {
	Create(form *model.FormResponse) error
	FindByIDForUser(id, userID uint) (*model.FormResponse, error)
	ListByUser(userID uint) ([]model.FormResponse, error)
	Update(form *model.FormResponse, changes map[string]interface{}) error
	Delete(id, userID uint) error
	GetLatestForUser(userID uint) (*model.FormResponse, error)
}

type formRepository struct {
	db *gorm.DB
}

// NewFormRepository 创建一个新的 FormRepository 实例。
func NewFormRepository(db *gorm.DB) FormRepository {
	return &formRepository{db: db}
}

// 最新档案按创建时间倒序，时间相同时按主键倒序。
const latestFirst = "created_at DESC, id DESC"

func (r *formRepository) Create(form *model.FormResponse) error {
	return r.db.Create(form).Error
}

// FindByIDForUser 查询不存在或不属于该用户时返回 gorm.ErrRecordNotFound。
func (r *formRepository) FindByIDForUser(id, userID uint) (*model.FormResponse, error) {
	var form model.FormResponse
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&form).Error
	if err != nil {
		return nil, err
	}
	return &form, nil
}

func (r *formRepository) ListByUser(userID uint) ([]model.FormResponse, error) {
	var forms []model.FormResponse
	err := r.db.Where("user_id = ?", userID).Order(latestFirst).Find(&forms).Error
	return forms, err
}

// Update 只写入 changes 中的列；changes 为空时不访问数据库。
func (r *formRepository) Update(form *model.FormResponse, changes map[string]interface{}) error {
	if len(changes) == 0 {
		return nil
	}
	return r.db.Model(form).Updates(changes).Error
}

func (r *formRepository) Delete(id, userID uint) error {
	res := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&model.FormResponse{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetLatestForUser 返回用户最新的档案；用户没有任何档案时返回 nil, nil。
func (r *formRepository) GetLatestForUser(userID uint) (*model.FormResponse, error) {
	var form model.FormResponse
	err := r.db.Where("user_id = ?", userID).Order(latestFirst).First(&form).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &form, nil
}
