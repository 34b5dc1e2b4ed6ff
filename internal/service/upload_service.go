package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zimlearn/console-api/internal/models"
	appErrors "github.com/zimlearn/console-api/pkg/errors"
	"github.com/zimlearn/console-api/pkg/jobs"
	"github.com/zimlearn/console-api/pkg/storage"
)

// TempOwnerPrefix marks uploads whose owning content row does not exist yet.
// The cleanup job sweeps them once they outlive the configured TTL.
const TempOwnerPrefix = "temp-"

// CleanupJobType identifies the orphan sweep job on the queue.
const CleanupJobType = "uploads.cleanup"

const mb = int64(1 << 20)

type uploadRule struct {
	extensions map[string]struct{}
	maxBytes   int64
}

func newUploadRule(maxBytes int64, exts ...string) uploadRule {
	allowed := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		allowed[ext] = struct{}{}
	}
	return uploadRule{extensions: allowed, maxBytes: maxBytes}
}

// uploadRules is the per-kind validation table: extension allow-list and
// byte-size cap. Images are the quiz-image rule.
var uploadRules = map[models.ContentKind]uploadRule{
	models.KindVideo: newUploadRule(500*mb, "mp4", "mov", "avi", "mkv", "webm"),
	models.KindPDF:   newUploadRule(50*mb, "pdf"),
	models.KindQuiz:  newUploadRule(20*mb, "json", "txt", "pdf"),
	models.KindNotes: newUploadRule(50*mb, "pdf", "doc", "docx", "txt"),
}

var imageRule = newUploadRule(5*mb, "jpg", "jpeg", "png", "gif", "webp")

// UploadResult describes a stored object and its download URL.
type UploadResult struct {
	URL       string    `json:"url"`
	Bucket    string    `json:"bucket"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	ExpiresAt time.Time `json:"expires_at"`
}

type objectSaver interface {
	Save(bucket, relPath string, r io.Reader) (*storage.Object, error)
	Delete(bucket, relPath string) error
	CleanupPrefixOlderThan(bucket, prefix string, ttl time.Duration) ([]string, error)
}

type urlSigner interface {
	Generate(bucket, relPath string) (string, time.Time, error)
}

// UploadConfig tunes upload hygiene.
type UploadConfig struct {
	PublicURL    string
	APIPrefix    string
	TempOwnerTTL time.Duration
}

// UploadService validates and stores content files and quiz images, and
// sweeps orphaned temp uploads.
type UploadService struct {
	store  objectSaver
	signer urlSigner
	config UploadConfig
	logger *zap.Logger
}

// NewUploadService constructs an UploadService.
func NewUploadService(store objectSaver, signer urlSigner, config UploadConfig, logger *zap.Logger) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.TempOwnerTTL <= 0 {
		config.TempOwnerTTL = 24 * time.Hour
	}
	return &UploadService{store: store, signer: signer, config: config, logger: logger}
}

// Validate checks a candidate upload against the per-kind rule without
// touching storage.
func (s *UploadService) Validate(kind models.ContentKind, filename string, size int64) (string, error) {
	rule, ok := uploadRules[kind]
	if !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported content kind %q", kind))
	}
	return checkRule(rule, filename, size)
}

// ValidateImage checks a quiz image upload.
func (s *UploadService) ValidateImage(filename string, size int64) (string, error) {
	return checkRule(imageRule, filename, size)
}

// StoreContentFile validates and stores an uploaded content file under
// content-files/<kind>/<owner>-<unixnano>.<ext>. Owner may carry the temp
// prefix when the content row is created after its file.
func (s *UploadService) StoreContentFile(ctx context.Context, kind models.ContentKind, ownerID, filename string, size int64, r io.Reader) (*UploadResult, error) {
	ext, err := s.Validate(kind, filename, size)
	if err != nil {
		return nil, err
	}
	if ownerID == "" {
		ownerID = fmt.Sprintf("%s%d", TempOwnerPrefix, time.Now().UTC().Unix())
	}

	relPath := fmt.Sprintf("%s/%s-%d.%s", kind, ownerID, time.Now().UTC().UnixNano(), ext)
	obj, err := s.store.Save(storage.BucketContentFiles, relPath, r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}
	return s.result(obj)
}

// StoreQuizImage validates and stores a question or answer illustration
// under quiz-images/<contentID>-q<idx>[-<answer>]-<unixnano>.<ext>.
func (s *UploadService) StoreQuizImage(ctx context.Context, contentID string, questionIndex int, answer models.AnswerLabel, filename string, size int64, r io.Reader) (*UploadResult, error) {
	ext, err := s.ValidateImage(filename, size)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s-q%d", contentID, questionIndex)
	if answer != "" {
		key += "-" + strings.ToLower(string(answer))
	}
	relPath := fmt.Sprintf("%s-%d.%s", key, time.Now().UTC().UnixNano(), ext)

	obj, err := s.store.Save(storage.BucketQuizImages, relPath, r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store image")
	}
	return s.result(obj)
}

// CleanupHandler is the queue handler that sweeps temp uploads older than
// the configured TTL out of the content bucket.
func (s *UploadService) CleanupHandler(ctx context.Context, job jobs.Job) error {
	var removed []string
	for _, kind := range []models.ContentKind{models.KindVideo, models.KindPDF, models.KindQuiz, models.KindNotes} {
		prefix := fmt.Sprintf("%s/%s", kind, TempOwnerPrefix)
		paths, err := s.store.CleanupPrefixOlderThan(storage.BucketContentFiles, prefix, s.config.TempOwnerTTL)
		if err != nil {
			return fmt.Errorf("sweep %s uploads: %w", kind, err)
		}
		removed = append(removed, paths...)
	}
	if len(removed) > 0 {
		s.logger.Info("swept orphaned uploads", zap.Int("count", len(removed)))
	}
	return nil
}

func (s *UploadService) result(obj *storage.Object) (*UploadResult, error) {
	res := &UploadResult{
		Bucket: obj.Bucket,
		Path:   obj.Path,
		Size:   obj.Size,
		URL:    fmt.Sprintf("%s%s/files/%s/%s", s.config.PublicURL, s.config.APIPrefix, obj.Bucket, obj.Path),
	}
	if s.signer != nil {
		token, expiresAt, err := s.signer.Generate(obj.Bucket, obj.Path)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
		}
		res.URL += "?token=" + token
		res.ExpiresAt = expiresAt
	}
	return res, nil
}

func checkRule(rule uploadRule, filename string, size int64) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if _, ok := rule.extensions[ext]; !ok {
		return "", appErrors.Clone(appErrors.ErrFileType, fmt.Sprintf("file type %q is not allowed", ext))
	}
	if size <= 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}
	if size > rule.maxBytes {
		return "", appErrors.Clone(appErrors.ErrFileTooLarge, fmt.Sprintf("file exceeds the %dMB limit", rule.maxBytes/mb))
	}
	return ext, nil
}
