package api

import (
	"net/http"
	"time"

	"github.com/wolfeidau/jokko/internal/objectstore"
	"github.com/wolfeidau/jokko/internal/validate"
)

const (
	uploadPrefix = "attachments"
	uploadTTL    = 15 * time.Minute
)

type uploadRequest struct {
	OrganizationID string `json:"organizationId"`
	FileName       string `json:"fileName"`
	ContentType    string `json:"contentType"`
}

type uploadResponse struct {
	Key         string    `json:"key"`
	UploadURL   string    `json:"uploadUrl"`
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// createUpload presigns a PUT and a GET for an attachment stored under the
// caller's organization. Only members of the organization may upload.
func (s *Server) createUpload(w http.ResponseWriter, r *http.Request) {
	session := mustSession(r)

	var req uploadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	orgID, err := validate.UUID("organizationId", req.OrganizationID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := validate.Length("fileName", req.FileName, 1, 255); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ContentType == "" {
		req.ContentType = "application/octet-stream"
	}

	member, err := s.deps.Organizations.IsMember(r.Context(), session.UserID, orgID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !member {
		writeError(w, r, errForbidden)
		return
	}

	now := time.Now()
	key := objectstore.Key(uploadPrefix, orgID, session.UserID, req.FileName, now)

	uploadURL, err := s.deps.Uploads.PresignUpload(r.Context(), key, req.ContentType, uploadTTL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	downloadURL, err := s.deps.Uploads.PresignDownload(r.Context(), key, uploadTTL)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Key:         key,
		UploadURL:   uploadURL,
		DownloadURL: downloadURL,
		ExpiresAt:   now.Add(uploadTTL).UTC(),
	})
}
