package handlers

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/TheMarco/sora-renderer/internal/domain"
)

const maxUploadBytes = 10 << 20 // 10MB reference image cap

var allowedUploadMIMEs = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
}

// UploadAsset accepts a reference image as multipart form data under the
// "file" field.
func (a *App) UploadAsset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusRequestEntityTooLarge, "too_large", "upload exceeds 10MB limit")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "file field required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "unreadable upload")
		return
	}
	mime := header.Header.Get("Content-Type")
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	if !allowedUploadMIMEs[mime] {
		a.error(w, http.StatusUnsupportedMediaType, "unsupported_media", "only png, jpeg and webp images are accepted")
		return
	}

	asset := &domain.Asset{
		ID:        uuid.NewString(),
		Kind:      domain.AssetKindImage,
		MIME:      mime,
		Name:      header.Filename,
		Bytes:     int64(len(data)),
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.Assets.Create(r.Context(), asset); err != nil {
		a.domainError(w, err)
		return
	}
	a.Registry.PutAsset(asset)
	a.json(w, http.StatusCreated, toAssetView(asset))
}

func (a *App) ListAssets(w http.ResponseWriter, r *http.Request) {
	kind := domain.AssetKind(r.URL.Query().Get("kind"))
	if kind != "" && !kind.IsValid() {
		a.error(w, http.StatusBadRequest, "bad_request", "unknown asset kind")
		return
	}
	assets := a.Registry.ListAssets(kind, r.URL.Query().Get("job_id"))
	views := make([]assetView, 0, len(assets))
	for i := range assets {
		views = append(views, toAssetView(&assets[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"assets": views})
}

func (a *App) GetAsset(w http.ResponseWriter, r *http.Request) {
	asset := a.Registry.GetAsset(chi.URLParam(r, "id"))
	if asset == nil {
		a.error(w, http.StatusNotFound, "not_found", "asset not found")
		return
	}
	a.json(w, http.StatusOK, toAssetView(asset))
}

// AssetContent streams the stored payload with its exact content type. The
// registry only caches rows, so the payload is read from the store.
func (a *App) AssetContent(w http.ResponseWriter, r *http.Request) {
	asset, err := a.Assets.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	w.Header().Set("Content-Type", asset.MIME)
	w.Header().Set("Content-Length", strconv.Itoa(len(asset.Data)))
	w.Header().Set("Content-Disposition", `inline; filename="`+asset.Name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(asset.Data)
}

func (a *App) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if a.Registry.GetAsset(id) == nil {
		a.error(w, http.StatusNotFound, "not_found", "asset not found")
		return
	}
	if err := a.Assets.Delete(r.Context(), id); err != nil {
		a.domainError(w, err)
		return
	}
	a.Registry.RemoveAsset(id)
	w.WriteHeader(http.StatusNoContent)
}
