package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"maps"
	"slices"
	"strconv"

	"github.com/google/uuid"

	"schoolcore/internal/blob"
	"schoolcore/internal/infra/persistence/snapshot"
	"schoolcore/pkg/domain"
)

// BackupPrefix is the blob key prefix used for backups.
const BackupPrefix = "backups/"

// ErrNoBlobStore is returned by blob backup operations when no sink is configured.
var ErrNoBlobStore = errors.New("no blob store configured")

// Backup writes a durable copy of the store to path. Stores that implement
// domain.Backupper produce their native format; the rest write the snapshot
// document.
func (s *Service) Backup(ctx context.Context, path string) error {
	return s.run(ctx, "backup", func() error {
		if b, ok := s.store.(domain.Backupper); ok {
			return b.Backup(ctx, path)
		}
		if path == "" {
			return &domain.FieldError{Field: "backup_path", Err: domain.ErrEmptyField}
		}
		doc, err := s.document(ctx)
		if err != nil {
			return err
		}
		return domain.Persistence("backup", snapshot.WriteFile(path, doc))
	})
}

// ExportDocument streams the snapshot document of the current state to w.
func (s *Service) ExportDocument(ctx context.Context, w io.Writer) error {
	doc, err := s.document(ctx)
	if err != nil {
		return err
	}
	return domain.Persistence("export", snapshot.Encode(w, doc))
}

// BackupToBlob writes the snapshot document to the configured blob store. An
// empty key generates backups/<UTC timestamp>-<uuid>.json.
func (s *Service) BackupToBlob(ctx context.Context, key string) (blob.Info, error) {
	var info blob.Info
	err := s.run(ctx, "backup_blob", func() error {
		if s.blobs == nil {
			return ErrNoBlobStore
		}
		if key == "" {
			key = BackupPrefix + s.clock.Now().UTC().Format("20060102T150405Z") + "-" + uuid.NewString() + ".json"
		}
		doc, err := s.document(ctx)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := snapshot.Encode(&buf, doc); err != nil {
			return domain.Persistence("encode backup", err)
		}
		info, err = s.blobs.Put(ctx, key, &buf, blob.PutOptions{
			ContentType: "application/json",
			Metadata: map[string]string{
				"students":    strconv.Itoa(len(doc.Students)),
				"instructors": strconv.Itoa(len(doc.Instructors)),
				"courses":     strconv.Itoa(len(doc.Courses)),
			},
		})
		if err != nil {
			return domain.Persistence("backup blob", err)
		}
		s.logger.Info().Str("key", info.Key).Int64("size", info.Size).Msg("backup written")
		return nil
	})
	return info, err
}

// ListBackups lists blob backups ordered by key.
func (s *Service) ListBackups(ctx context.Context) ([]blob.Info, error) {
	if s.blobs == nil {
		return nil, ErrNoBlobStore
	}
	infos, err := s.blobs.List(ctx, BackupPrefix)
	if err != nil {
		return nil, domain.Persistence("list backups", err)
	}
	return infos, nil
}

// RestoreFromBlob replaces the whole store state with the backup stored under
// key. The document is loaded with the same lenient repairs as the snapshot
// backend and applied in one transaction, so a failure leaves the store as it
// was.
func (s *Service) RestoreFromBlob(ctx context.Context, key string) (snapshot.LoadReport, error) {
	var report snapshot.LoadReport
	err := s.run(ctx, "restore_blob", func() error {
		if s.blobs == nil {
			return ErrNoBlobStore
		}
		_, rc, err := s.blobs.Get(ctx, key)
		if err != nil {
			if errors.Is(err, blob.ErrNotFound) {
				return domain.NotFound(domain.EntityBackup, key)
			}
			return domain.Persistence("get backup", err)
		}
		defer func() { _ = rc.Close() }()
		doc, err := snapshot.Decode(rc)
		if err != nil {
			return domain.Persistence("decode backup", err)
		}
		snap, rep, err := doc.Snapshot()
		if err != nil {
			return err
		}
		report = rep
		_, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			view := tx.Snapshot()
			for _, c := range view.ListCourses() {
				if err := tx.DeleteCourse(c.ID); err != nil {
					return err
				}
			}
			for _, st := range view.ListStudents() {
				if err := tx.DeleteStudent(st.ID); err != nil {
					return err
				}
			}
			for _, in := range view.ListInstructors() {
				if err := tx.DeleteInstructor(in.ID); err != nil {
					return err
				}
			}
			for _, id := range slices.Sorted(maps.Keys(snap.Instructors)) {
				if _, err := tx.CreateInstructor(snap.Instructors[id]); err != nil {
					return err
				}
			}
			for _, id := range slices.Sorted(maps.Keys(snap.Students)) {
				if _, err := tx.CreateStudent(snap.Students[id]); err != nil {
					return err
				}
			}
			for _, id := range slices.Sorted(maps.Keys(snap.Courses)) {
				if _, err := tx.CreateCourse(snap.Courses[id]); err != nil {
					return err
				}
			}
			for _, e := range snap.Enrollments {
				if _, err := tx.Enroll(e.StudentID, e.CourseID); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		if rep.Repaired() {
			s.logger.Warn().Str("key", key).Int("dropped_enrollments", len(rep.DroppedEnrollments)).
				Int("dropped_assignments", rep.DroppedAssignments).Msg("backup contained dangling references; dropped on restore")
		}
		s.logger.Info().Str("key", key).Msg("backup restored")
		return nil
	})
	return report, err
}

// DeleteBackup removes the blob backup stored under key.
func (s *Service) DeleteBackup(ctx context.Context, key string) error {
	return s.run(ctx, "delete_backup", func() error {
		if s.blobs == nil {
			return ErrNoBlobStore
		}
		removed, err := s.blobs.Delete(ctx, key)
		if err != nil {
			return domain.Persistence("delete backup", err)
		}
		if !removed {
			return domain.NotFound(domain.EntityBackup, key)
		}
		return nil
	})
}

func (s *Service) document(ctx context.Context) (snapshot.Document, error) {
	var doc snapshot.Document
	err := s.store.View(ctx, func(v domain.TransactionView) error {
		doc = snapshot.NewDocument(v)
		return nil
	})
	return doc, err
}
