package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/IgorGrieder/encurtador-live/internal/auth"
	"github.com/IgorGrieder/encurtador-live/internal/constants"
	"github.com/IgorGrieder/encurtador-live/internal/infrastructure/logger"
	appvalidation "github.com/IgorGrieder/encurtador-live/internal/infrastructure/validation"
	"github.com/IgorGrieder/encurtador-live/internal/processing/links"
	"github.com/IgorGrieder/encurtador-live/pkg/httputils"
	"go.uber.org/zap"
)

const (
	headerForwardedFor = "X-Forwarded-For"
	headerCFClientIP   = "CF-Connecting-IP"
	headerCFCountry    = "CF-IPCountry"

	maxFormMemory = 1 << 20
)

type LinksHandler struct {
	svc            *links.Service
	redirectStatus int
}

func NewLinksHandler(svc *links.Service, redirectStatus int) *LinksHandler {
	if redirectStatus == 0 {
		redirectStatus = http.StatusSeeOther
	}
	return &LinksHandler{svc: svc, redirectStatus: redirectStatus}
}

type createLinkForm struct {
	LongURL string `json:"longUrl" validate:"required,notblank"`
}

func (h *LinksHandler) List(w http.ResponseWriter, r *http.Request) error {
	identity, err := auth.Require(r.Context())
	if err != nil {
		return err
	}

	list, err := h.svc.ListLinks(r.Context(), identity.Login)
	if err != nil {
		return err
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessLinksFound, list)
	return nil
}

func (h *LinksHandler) Create(w http.ResponseWriter, r *http.Request) error {
	identity, err := auth.Require(r.Context())
	if err != nil {
		return err
	}

	// Accepts urlencoded and multipart bodies; ParseMultipartForm runs
	// ParseForm before rejecting a non-multipart body.
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		httputils.WriteText(w, r, http.StatusBadRequest, constants.MsgInvalidForm)
		return nil
	}

	form := createLinkForm{LongURL: r.PostForm.Get("longUrl")}
	if err := appvalidation.Validate(form); err != nil {
		httputils.WriteText(w, r, http.StatusBadRequest, constants.MsgMissingLongURL)
		return nil
	}

	link, err := h.svc.CreateLink(r.Context(), form.LongURL, identity.Login)
	if err != nil {
		if errors.Is(err, links.ErrInvalidInput) {
			httputils.WriteText(w, r, http.StatusBadRequest, constants.MsgInvalidLongURL)
			return nil
		}
		return err
	}

	linksCreatedTotal.Inc()
	logger.Info("link created",
		zap.String("short_code", link.ShortCode),
		zap.String("owner", link.Owner),
	)

	http.Redirect(w, r, "/links", http.StatusSeeOther)
	return nil
}

func (h *LinksHandler) Detail(w http.ResponseWriter, r *http.Request) error {
	link, err := h.svc.GetLink(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, links.ErrNotFound) {
			return renderView(w, http.StatusNotFound, viewNotFound, nil)
		}
		return err
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessLinkFound, link)
	return nil
}

// Redirect resolves the short code, counts the visit and redirects. Tracking
// is synchronous so the count is visible once the redirect is sent.
func (h *LinksHandler) Redirect(w http.ResponseWriter, r *http.Request) error {
	code := r.PathValue("id")

	link, err := h.svc.TrackClick(r.Context(), code, clickMetadata(r))
	if err != nil {
		if errors.Is(err, links.ErrNotFound) {
			return renderView(w, http.StatusNotFound, viewNotFound, nil)
		}
		return err
	}

	clicksTrackedTotal.Inc()
	http.Redirect(w, r, link.LongURL, h.redirectStatus)
	return nil
}

// clickMetadata reads the client signals of a visit. Missing values are left
// empty and become links.UnknownValue in the store.
func clickMetadata(r *http.Request) links.ClickMetadata {
	ip := firstNonEmpty(r.Header.Get(headerForwardedFor), r.Header.Get(headerCFClientIP))
	return links.ClickMetadata{
		IPAddress: ip,
		UserAgent: strings.TrimSpace(r.UserAgent()),
		Country:   strings.TrimSpace(r.Header.Get(headerCFCountry)),
	}.Normalize()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
