package attachments

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/internal/repo"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sitecompliance-backend/pkg/errors"
	"github.com/angelmondragon/sitecompliance-backend/pkg/logger"
	"github.com/angelmondragon/sitecompliance-backend/pkg/storage"
)

// sniffLen is how much of the upload is buffered for content detection.
const sniffLen = 3072

var allowedMimes = []string{
	"application/pdf",
	"image/jpeg",
	"image/png",
	"image/webp",
	"text/plain",
	"text/csv",
	"application/zip",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

type attachmentsRepository interface {
	Create(ctx context.Context, a *models.Attachment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Attachment, error)
	ListByOwner(ctx context.Context, owner models.EntityRef) ([]models.Attachment, error)
}

type referenceResolver interface {
	Resolve(ctx context.Context, ref models.EntityRef) error
}

// Service stores evidence files for any owning entity.
type Service interface {
	Upload(ctx context.Context, input UploadInput) (*AttachmentView, error)
	Get(ctx context.Context, id uuid.UUID) (*AttachmentView, error)
	List(ctx context.Context, owner models.EntityRef) ([]AttachmentView, error)
}

type UploadInput struct {
	Owner      models.EntityRef
	Filename   string
	UploadedBy string
	Body       io.Reader
}

type AttachmentView struct {
	ID          uuid.UUID        `json:"id"`
	Owner       models.EntityRef `json:"owner"`
	Filename    string           `json:"filename"`
	Mime        string           `json:"mime"`
	Size        int64            `json:"size"`
	UploadedBy  string           `json:"uploaded_by"`
	CreatedAt   time.Time        `json:"created_at"`
	DownloadURL string           `json:"download_url,omitempty"`
}

type ServiceParams struct {
	Repo        attachmentsRepository
	Refs        referenceResolver
	Store       storage.Store
	MaxBytes    int64
	DownloadTTL time.Duration
	Logger      *logger.Logger
}

type service struct {
	repo        attachmentsRepository
	refs        referenceResolver
	store       storage.Store
	maxBytes    int64
	downloadTTL time.Duration
	logg        *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("attachments repository required")
	}
	if params.Refs == nil {
		return nil, fmt.Errorf("reference resolver required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("storage required")
	}
	if params.MaxBytes <= 0 {
		return nil, fmt.Errorf("max upload size must be positive")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:        params.Repo,
		refs:        params.Refs,
		store:       params.Store,
		maxBytes:    params.MaxBytes,
		downloadTTL: params.DownloadTTL,
		logg:        logg,
	}, nil
}

var errTooLarge = errors.New("upload exceeds size limit")

// limitedReader fails once more than max bytes were read.
type limitedReader struct {
	r   io.Reader
	n   int64
	max int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.n += int64(n)
	if l.n > l.max {
		return n, errTooLarge
	}
	return n, err
}

func (s *service) Upload(ctx context.Context, input UploadInput) (*AttachmentView, error) {
	uploadedBy := strings.TrimSpace(input.UploadedBy)
	if uploadedBy == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "uploaded_by is required")
	}
	filename := strings.TrimSpace(input.Filename)
	if filename == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "filename is required")
	}
	if input.Body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is required")
	}
	if err := s.refs.Resolve(ctx, input.Owner); err != nil {
		return nil, err
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(input.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}
	head = head[:n]
	if n == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}
	mime := mimetype.Detect(head)
	if !mimetype.EqualsAny(mime.String(), allowedMimes...) && !isAllowed(mime) {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "file type %s is not allowed", mime.String()).
			WithDetails(map[string]any{"allowed": allowedMimes})
	}

	id := uuid.New()
	key := storage.ObjectKey(string(input.Owner.Kind), input.Owner.ID.String(), id.String(), filename)
	body := &limitedReader{r: io.MultiReader(bytes.NewReader(head), input.Body), max: s.maxBytes}
	if err := s.store.Put(ctx, storage.Object{Key: key, ContentType: mime.String(), Body: body}); err != nil {
		if errors.Is(err, errTooLarge) {
			_ = s.store.Delete(context.WithoutCancel(ctx), key)
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "file exceeds %d bytes", s.maxBytes)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store attachment")
	}

	a := &models.Attachment{
		ID:             id,
		AttachableType: input.Owner.Kind,
		AttachableID:   input.Owner.ID,
		Filename:       filename,
		Path:           key,
		Mime:           mime.String(),
		Size:           body.n,
		UploadedBy:     uploadedBy,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		_ = s.store.Delete(context.WithoutCancel(ctx), key)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create attachment")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"attachment_id": a.ID.String(),
		"owner_kind":    a.AttachableType,
		"owner_id":      a.AttachableID.String(),
		"mime":          a.Mime,
		"size":          a.Size,
	}), "attachment stored")
	v := s.view(ctx, *a)
	return &v, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*AttachmentView, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repo.NotFound(err, "attachment")
	}
	v := s.view(ctx, *a)
	return &v, nil
}

func (s *service) List(ctx context.Context, owner models.EntityRef) ([]AttachmentView, error) {
	if err := s.refs.Resolve(ctx, owner); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list attachments")
	}
	out := make([]AttachmentView, 0, len(rows))
	for _, row := range rows {
		out = append(out, s.view(ctx, row))
	}
	return out, nil
}

func (s *service) view(ctx context.Context, a models.Attachment) AttachmentView {
	v := AttachmentView{
		ID:         a.ID,
		Owner:      a.Owner(),
		Filename:   a.Filename,
		Mime:       a.Mime,
		Size:       a.Size,
		UploadedBy: a.UploadedBy,
		CreatedAt:  a.CreatedAt,
	}
	url, err := s.store.SignedReadURL(ctx, a.Path, s.downloadTTL)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "attachment_id", a.ID.String()), "could not sign attachment url")
		return v
	}
	v.DownloadURL = url
	return v
}

// isAllowed accepts subtypes of allowed formats (e.g. text/plain with a charset).
func isAllowed(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		for _, allowed := range allowedMimes {
			if m.Is(allowed) {
				return true
			}
		}
	}
	return false
}
