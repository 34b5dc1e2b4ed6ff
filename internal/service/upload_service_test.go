package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zimlearn/console-api/internal/models"
	appErrors "github.com/zimlearn/console-api/pkg/errors"
	"github.com/zimlearn/console-api/pkg/jobs"
	"github.com/zimlearn/console-api/pkg/storage"
)

type objectSaverStub struct {
	saved    []string
	sweeps   []string
	swept    []string
	saveSize int64
}

func (s *objectSaverStub) Save(bucket, relPath string, r io.Reader) (*storage.Object, error) {
	s.saved = append(s.saved, bucket+"/"+relPath)
	return &storage.Object{Bucket: bucket, Path: relPath, Size: s.saveSize}, nil
}

func (s *objectSaverStub) Delete(bucket, relPath string) error { return nil }

func (s *objectSaverStub) CleanupPrefixOlderThan(bucket, prefix string, ttl time.Duration) ([]string, error) {
	s.sweeps = append(s.sweeps, prefix)
	return s.swept, nil
}

type signerStub struct{}

func (signerStub) Generate(bucket, relPath string) (string, time.Time, error) {
	return "tok123", time.Now().Add(time.Hour), nil
}

func TestUploadServiceValidateTable(t *testing.T) {
	svc := NewUploadService(&objectSaverStub{}, signerStub{}, UploadConfig{}, nil)

	tests := []struct {
		name     string
		kind     models.ContentKind
		filename string
		size     int64
		wantExt  string
		wantCode string
	}{
		{"video mp4 ok", models.KindVideo, "lesson.MP4", 100 << 20, "mp4", ""},
		{"video wrong type", models.KindVideo, "lesson.pdf", 1 << 20, "", appErrors.ErrFileType.Code},
		{"video too large", models.KindVideo, "lesson.mp4", 501 << 20, "", appErrors.ErrFileTooLarge.Code},
		{"pdf ok", models.KindPDF, "notes.pdf", 10 << 20, "pdf", ""},
		{"pdf too large", models.KindPDF, "notes.pdf", 51 << 20, "", appErrors.ErrFileTooLarge.Code},
		{"quiz json ok", models.KindQuiz, "quiz.json", 1 << 20, "json", ""},
		{"quiz exe rejected", models.KindQuiz, "quiz.exe", 1 << 20, "", appErrors.ErrFileType.Code},
		{"notes docx ok", models.KindNotes, "handout.docx", 2 << 20, "docx", ""},
		{"empty file", models.KindPDF, "notes.pdf", 0, "", appErrors.ErrValidation.Code},
		{"unknown kind", models.ContentKind("audio"), "clip.mp3", 1 << 20, "", appErrors.ErrValidation.Code},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ext, err := svc.Validate(tc.kind, tc.filename, tc.size)
			if tc.wantCode == "" {
				require.NoError(t, err)
				require.Equal(t, tc.wantExt, ext)
				return
			}
			require.Error(t, err)
			require.Equal(t, tc.wantCode, appErrors.FromError(err).Code)
		})
	}
}

func TestUploadServiceValidateImage(t *testing.T) {
	svc := NewUploadService(&objectSaverStub{}, signerStub{}, UploadConfig{}, nil)

	ext, err := svc.ValidateImage("diagram.PNG", 2<<20)
	require.NoError(t, err)
	require.Equal(t, "png", ext)

	_, err = svc.ValidateImage("diagram.png", 6<<20)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrFileTooLarge.Code, appErrors.FromError(err).Code)
}

func TestUploadServiceStoreContentFileBuildsSignedURL(t *testing.T) {
	store := &objectSaverStub{saveSize: 1024}
	svc := NewUploadService(store, signerStub{}, UploadConfig{
		PublicURL: "http://localhost:8080",
		APIPrefix: "/api/v1",
	}, nil)

	result, err := svc.StoreContentFile(context.Background(), models.KindPDF, "con-1", "notes.pdf", 1024, strings.NewReader("x"))
	require.NoError(t, err)
	require.Equal(t, storage.BucketContentFiles, result.Bucket)
	require.True(t, strings.HasPrefix(result.Path, "pdf/con-1-"))
	require.True(t, strings.HasSuffix(result.Path, ".pdf"))
	require.Contains(t, result.URL, "http://localhost:8080/api/v1/files/content-files/pdf/con-1-")
	require.Contains(t, result.URL, "?token=tok123")
	require.False(t, result.ExpiresAt.IsZero())
}

func TestUploadServiceStoreContentFileWithoutOwnerUsesTempPrefix(t *testing.T) {
	store := &objectSaverStub{saveSize: 1024}
	svc := NewUploadService(store, signerStub{}, UploadConfig{}, nil)

	result, err := svc.StoreContentFile(context.Background(), models.KindVideo, "", "intro.mp4", 1024, strings.NewReader("x"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(result.Path, "video/"+TempOwnerPrefix))
}

func TestUploadServiceStoreQuizImageKeysByQuestionAndAnswer(t *testing.T) {
	store := &objectSaverStub{saveSize: 512}
	svc := NewUploadService(store, signerStub{}, UploadConfig{}, nil)

	result, err := svc.StoreQuizImage(context.Background(), "quiz-1", 2, models.AnswerC, "diagram.png", 512, strings.NewReader("x"))
	require.NoError(t, err)
	require.Equal(t, storage.BucketQuizImages, result.Bucket)
	require.True(t, strings.HasPrefix(result.Path, "quiz-1-q2-c-"))

	result, err = svc.StoreQuizImage(context.Background(), "quiz-1", 0, "", "diagram.png", 512, strings.NewReader("x"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(result.Path, "quiz-1-q0-"))
}

func TestUploadServiceCleanupHandlerSweepsAllKinds(t *testing.T) {
	store := &objectSaverStub{swept: []string{"video/temp-1-2.mp4"}}
	svc := NewUploadService(store, signerStub{}, UploadConfig{TempOwnerTTL: time.Hour}, nil)

	err := svc.CleanupHandler(context.Background(), jobs.Job{Type: CleanupJobType})
	require.NoError(t, err)
	require.Equal(t, []string{
		"video/" + TempOwnerPrefix,
		"pdf/" + TempOwnerPrefix,
		"quiz/" + TempOwnerPrefix,
		"notes/" + TempOwnerPrefix,
	}, store.sweeps)
}

func TestUploadServiceCleanupHandlerDeletesOrphanedObjects(t *testing.T) {
	base := t.TempDir()
	store, err := storage.NewObjectStore(base)
	require.NoError(t, err)
	svc := NewUploadService(store, signerStub{}, UploadConfig{TempOwnerTTL: 24 * time.Hour}, nil)

	orphan := "video/" + TempOwnerPrefix + "1700000000-1.mp4"
	attached := "video/lesson-1.mp4"
	for _, relPath := range []string{orphan, attached} {
		_, err = store.Save(storage.BucketContentFiles, relPath, strings.NewReader("x"))
		require.NoError(t, err)
		full := filepath.Join(base, storage.BucketContentFiles, filepath.FromSlash(relPath))
		stale := time.Now().Add(-72 * time.Hour)
		require.NoError(t, os.Chtimes(full, stale, stale))
	}

	require.NoError(t, svc.CleanupHandler(context.Background(), jobs.Job{Type: CleanupJobType}))

	_, err = os.Stat(filepath.Join(base, storage.BucketContentFiles, filepath.FromSlash(orphan)))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(base, storage.BucketContentFiles, filepath.FromSlash(attached)))
	require.NoError(t, err)
}
