package handler

import (
	"context"
	"net/http"

	docmodel "guidebook/internal/document/model"
	"guidebook/internal/image/model"
	"guidebook/internal/image/service"
	"guidebook/internal/validation"
	"guidebook/middleware"
	"guidebook/pkg/logger"
	"guidebook/pkg/response"
)

type ImageService interface {
	CreateImage(ctx context.Context, actor service.Actor, in model.Input) (int64, error)
	CreateImages(ctx context.Context, actor service.Actor, inputs []model.Input) ([]int64, error)
	UpdateImage(ctx context.Context, actor service.Actor, id int64, req *model.UpdateImageRequest, fields validation.Fields) error
	GetImage(ctx context.Context, id int64, lang string) (*model.Image, error)
	ListImages(ctx context.Context, page validation.Pagination, preferredLang string) (*model.ImageList, error)
	Info(ctx context.Context, id int64, lang string) (*docmodel.Info, error)
	ProxyURL(ctx context.Context, id int64, size string) (string, error)
}

type ImageHandler struct {
	Service       ImageService
	ModeratorRole string
}

func NewImageHandler(service ImageService, moderatorRole string) *ImageHandler {
	return &ImageHandler{Service: service, ModeratorRole: moderatorRole}
}

func (h *ImageHandler) fail(w http.ResponseWriter, action string, err error) {
	logger.Sugar.Warnf("Handler: Failed to %s: %v", action, err)
	response.Error(w, err)
}

func (h *ImageHandler) actor(r *http.Request) (service.Actor, bool) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		return service.Actor{}, false
	}
	return service.Actor{UserID: p.UserID, Moderator: p.HasRole(h.ModeratorRole)}, true
}

// ListImages serves GET /images?offset=&limit=&pl=
func (h *ImageHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, errs := validation.ValidatePagination(query)
	lang, langErrs := validation.ValidateLangParam(query, "pl")
	errs.Merge(langErrs)
	if !errs.Empty() {
		response.Error(w, errs)
		return
	}

	list, err := h.Service.ListImages(r.Context(), page, lang)
	if err != nil {
		h.fail(w, "list images", err)
		return
	}
	response.JSON(w, http.StatusOK, list)
}

// GetImage serves GET /images/{id}?l=
func (h *ImageHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, errs := validation.ValidateID(r.PathValue("id"))
	lang, langErrs := validation.ValidateLangParam(r.URL.Query(), "l")
	errs.Merge(langErrs)
	if !errs.Empty() {
		response.Error(w, errs)
		return
	}

	img, err := h.Service.GetImage(r.Context(), id, lang)
	if err != nil {
		h.fail(w, "get image "+r.PathValue("id"), err)
		return
	}
	response.JSON(w, http.StatusOK, img)
}

func (h *ImageHandler) CreateImage(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var img model.Image
	fields, err := response.DecodeJSON(r, &img)
	if err != nil {
		response.Error(w, err)
		return
	}

	id, err := h.Service.CreateImage(r.Context(), actor, model.Input{Image: &img, Fields: fields})
	if err != nil {
		h.fail(w, "create image", err)
		return
	}
	response.JSON(w, http.StatusOK, model.CreateImageResponse{DocumentID: id})
}

// CreateImageList serves POST /images/list, creating a batch of images
// with a single feed entry.
func (h *ImageHandler) CreateImageList(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req model.CreateImageListRequest
	fields, err := response.DecodeJSON(r, &req)
	if err != nil {
		response.Error(w, err)
		return
	}
	rawImages, _ := fields["images"].([]any)
	if len(req.Images) == 0 || len(rawImages) != len(req.Images) {
		errs := &validation.Errors{}
		errs.Add(validation.LocationBody, "images", "Required")
		response.Error(w, errs)
		return
	}

	inputs := make([]model.Input, len(req.Images))
	for i := range req.Images {
		imageFields, _ := rawImages[i].(map[string]any)
		inputs[i] = model.Input{Image: &req.Images[i], Fields: imageFields}
	}

	ids, err := h.Service.CreateImages(r.Context(), actor, inputs)
	if err != nil {
		h.fail(w, "create image list", err)
		return
	}
	resp := model.CreateImageListResponse{Images: make([]model.CreateImageResponse, len(ids))}
	for i, id := range ids {
		resp.Images[i].DocumentID = id
	}
	response.JSON(w, http.StatusOK, resp)
}

func (h *ImageHandler) UpdateImage(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, errs := validation.ValidateID(r.PathValue("id"))
	if !errs.Empty() {
		response.Error(w, errs)
		return
	}

	var req model.UpdateImageRequest
	fields, err := response.DecodeJSON(r, &req)
	if err != nil {
		response.Error(w, err)
		return
	}

	if err := h.Service.UpdateImage(r.Context(), actor, id, &req, fields); err != nil {
		h.fail(w, "update image "+r.PathValue("id"), err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{})
}

// Info serves GET /images/{id}/{lang}/info
func (h *ImageHandler) Info(w http.ResponseWriter, r *http.Request) {
	id, errs := validation.ValidateID(r.PathValue("id"))
	lang, langErrs := validation.ValidateLang(r.PathValue("lang"))
	errs.Merge(langErrs)
	if !errs.Empty() {
		response.Error(w, errs)
		return
	}

	info, err := h.Service.Info(r.Context(), id, lang)
	if err != nil {
		h.fail(w, "get image info", err)
		return
	}
	response.JSON(w, http.StatusOK, info)
}

// Proxy redirects to the file of an image, optionally in a smaller size.
func (h *ImageHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	id, errs := validation.ValidateID(r.PathValue("id"))
	size, sizeErrs := validation.ValidateSize(r.URL.Query())
	errs.Merge(sizeErrs)
	if !errs.Empty() {
		response.Error(w, errs)
		return
	}

	target, err := h.Service.ProxyURL(r.Context(), id, size)
	if err != nil {
		h.fail(w, "proxy image "+r.PathValue("id"), err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}
