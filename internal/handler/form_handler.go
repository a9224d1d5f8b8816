package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"regenai-go/internal/model"
	"regenai-go/internal/service"
)

// FormHandler 负责土地档案的增删改查。
type FormHandler struct {
	formService service.FormService
}

// NewFormHandler 创建一个新的 FormHandler 实例。
func NewFormHandler(formService service.FormService) *FormHandler {
	return &FormHandler{formService: formService}
}

// Create 提交一份新档案。
func (h *FormHandler) Create(c *gin.Context) {
	var req model.FormCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid form: "+err.Error())
		return
	}
	form, err := h.formService.Create(currentUser(c).ID, req)
	if err != nil {
		failWithError(c, "CreateForm", err)
		return
	}
	respond(c, http.StatusCreated, "success", form)
}

// List 返回当前用户的全部档案，最新的在前。
func (h *FormHandler) List(c *gin.Context) {
	forms, err := h.formService.List(currentUser(c).ID)
	if err != nil {
		failWithError(c, "ListForms", err)
		return
	}
	ok(c, forms)
}

func (h *FormHandler) Get(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	form, err := h.formService.Get(currentUser(c).ID, id)
	if err != nil {
		failWithError(c, "GetForm", err)
		return
	}
	ok(c, form)
}

// Update 部分更新档案，请求体中未出现的字段保持不变。
func (h *FormHandler) Update(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	var req model.FormUpdateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "Invalid form: "+err.Error())
			return
		}
	}
	form, err := h.formService.Update(currentUser(c).ID, id, req)
	if err != nil {
		failWithError(c, "UpdateForm", err)
		return
	}
	ok(c, form)
}

func (h *FormHandler) Delete(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	if err := h.formService.Delete(currentUser(c).ID, id); err != nil {
		failWithError(c, "DeleteForm", err)
		return
	}
	c.Status(http.StatusNoContent)
}
