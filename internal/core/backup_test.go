package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"schoolcore/internal/blob"
	"schoolcore/internal/infra/persistence/snapshot"
	"schoolcore/internal/infra/persistence/sqlite"
	"schoolcore/pkg/domain"
)

func seededService(t *testing.T, svc *Service) {
	t.Helper()
	ctx := context.Background()
	mustCreateStudent(t, svc, "S1", alice())
	if _, _, err := svc.CreateInstructor(ctx, "I1", person("Turing", "41", "t@uni.edu")); err != nil {
		t.Fatalf("create instructor: %v", err)
	}
	mustCreateCourse(t, svc, "C1", "Math", domain.StringPtr("I1"))
	if _, _, err := svc.Enroll(ctx, "S1", "C1"); err != nil {
		t.Fatalf("enroll: %v", err)
	}
}

func TestBackupFallsBackToDocument(t *testing.T) {
	svc := NewInMemoryService(nil)
	seededService(t, svc)
	path := filepath.Join(t.TempDir(), "backup.json")
	if err := svc.Backup(context.Background(), path); err != nil {
		t.Fatalf("backup: %v", err)
	}
	doc, err := snapshot.ReadFile(path)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if len(doc.Courses) != 1 || len(doc.Courses[0].EnrolledStudentIDs) != 1 || *doc.Courses[0].InstructorID != "I1" {
		t.Fatalf("unexpected document %+v", doc)
	}

	reloaded, err := snapshot.NewStore(path, NewRulesEngine())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	restored := NewService(reloaded)
	roster, err := restored.Roster(context.Background(), "C1")
	if err != nil || len(roster) != 1 || roster[0].ID != "S1" {
		t.Fatalf("round trip roster %v %v", ids(roster), err)
	}
	if err := svc.Backup(context.Background(), ""); !errors.Is(err, domain.ErrEmptyField) {
		t.Fatalf("expected empty path error, got %v", err)
	}
}

func TestBackupUsesNativeBackupper(t *testing.T) {
	dir := t.TempDir()
	store, err := sqlite.NewStore(filepath.Join(dir, "live.db"), NewRulesEngine())
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	svc := NewService(store)
	t.Cleanup(func() { _ = svc.Close() })
	seededService(t, svc)

	target := filepath.Join(dir, "copy.db")
	if err := svc.Backup(context.Background(), target); err != nil {
		t.Fatalf("backup: %v", err)
	}
	copyStore, err := sqlite.NewStore(target, NewRulesEngine())
	if err != nil {
		t.Fatalf("open copy: %v", err)
	}
	defer copyStore.Close()
	if c, ok := copyStore.GetCourse("C1"); !ok || !c.HasInstructor("I1") {
		t.Fatalf("copy missing course: %+v", c)
	}
}

func TestBackupToBlob(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	sink := blob.NewMemory()
	svc := NewInMemoryService(nil, WithBlobStore(sink), WithClock(ClockFunc(func() time.Time { return fixed })))
	seededService(t, svc)

	info, err := svc.BackupToBlob(ctx, "")
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if !strings.HasPrefix(info.Key, "backups/20260304T050607Z-") || !strings.HasSuffix(info.Key, ".json") {
		t.Fatalf("unexpected key %s", info.Key)
	}
	if info.Metadata["students"] != "1" || info.ContentType != "application/json" {
		t.Fatalf("unexpected info %+v", info)
	}

	_, rc, err := sink.Get(ctx, info.Key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	doc, err := snapshot.Decode(rc)
	if err != nil || len(doc.Students) != 1 {
		t.Fatalf("decode backup: %+v %v", doc, err)
	}

	if _, err := svc.BackupToBlob(ctx, "backups/manual.json"); err != nil {
		t.Fatalf("named backup: %v", err)
	}
	if _, err := svc.BackupToBlob(ctx, "backups/manual.json"); !errors.Is(err, blob.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	list, err := svc.ListBackups(ctx)
	if err != nil || len(list) != 2 {
		t.Fatalf("list backups: %v %v", list, err)
	}
}

func TestBackupToBlobRequiresSink(t *testing.T) {
	svc := NewInMemoryService(nil)
	if _, err := svc.BackupToBlob(context.Background(), ""); !errors.Is(err, ErrNoBlobStore) {
		t.Fatalf("expected ErrNoBlobStore, got %v", err)
	}
	if _, err := svc.ListBackups(context.Background()); !errors.Is(err, ErrNoBlobStore) {
		t.Fatalf("expected ErrNoBlobStore, got %v", err)
	}
}

func TestExportDocument(t *testing.T) {
	svc := NewInMemoryService(nil)
	seededService(t, svc)
	var buf bytes.Buffer
	if err := svc.ExportDocument(context.Background(), &buf); err != nil {
		t.Fatalf("export: %v", err)
	}
	doc, err := snapshot.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Instructors) != 1 || len(doc.Instructors[0].CourseIDs) != 1 {
		t.Fatalf("unexpected document %+v", doc)
	}
	if err := svc.ExportDocument(context.Background(), failingWriter{}); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence failure, got %v", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestBackupReportsWriteFailure(t *testing.T) {
	svc := NewInMemoryService(nil)
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	err := svc.Backup(context.Background(), filepath.Join(blocker, "nested", "backup.json"))
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence failure, got %v", err)
	}
}

func TestRestoreFromBlobReplacesState(t *testing.T) {
	ctx := context.Background()
	sink := blob.NewMemory()
	store, err := sqlite.NewStore(filepath.Join(t.TempDir(), "live.db"), NewRulesEngine())
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	svc := NewService(store, WithBlobStore(sink))
	t.Cleanup(func() { _ = svc.Close() })
	seededService(t, svc)

	info, err := svc.BackupToBlob(ctx, "backups/before.json")
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if _, err := svc.DeleteStudent(ctx, "S1"); err != nil {
		t.Fatalf("delete student: %v", err)
	}
	mustCreateStudent(t, svc, "S2", person("Bob", "30", "b@b.com"))
	mustCreateCourse(t, svc, "C2", "Art", nil)

	report, err := svc.RestoreFromBlob(ctx, info.Key)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if report.Repaired() {
		t.Fatalf("clean backup reported repairs: %+v", report)
	}
	if got := ids(svc.ListStudents()); len(got) != 1 || got[0] != "S1" {
		t.Fatalf("students after restore = %v", got)
	}
	if _, err := svc.GetCourse("C2"); domain.KindOf(err) != domain.KindNotFound {
		t.Fatalf("course created after backup should be gone, got %v", err)
	}
	roster, err := svc.Roster(ctx, "C1")
	if err != nil || len(roster) != 1 || roster[0].ID != "S1" {
		t.Fatalf("roster after restore %v %v", ids(roster), err)
	}
	course, err := svc.GetCourse("C1")
	if err != nil || !course.HasInstructor("I1") {
		t.Fatalf("course after restore %+v %v", course, err)
	}
}

func TestRestoreFromBlobRepairsDanglingReferences(t *testing.T) {
	ctx := context.Background()
	sink := blob.NewMemory()
	raw := `{"students":[{"id":"S1","name":"Alice","age":20,"email":"a@a.com"}],
"instructors":[],
"courses":[{"id":"C1","name":"Math","instructor_id":"I9","enrolled_student_ids":["S1","S9"]}]}`
	if _, err := sink.Put(ctx, "backups/dangling.json", strings.NewReader(raw), blob.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	svc := NewInMemoryService(nil, WithBlobStore(sink))
	report, err := svc.RestoreFromBlob(ctx, "backups/dangling.json")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !report.Repaired() || len(report.DroppedEnrollments) != 1 {
		t.Fatalf("expected repairs, got %+v", report)
	}
	course, err := svc.GetCourse("C1")
	if err != nil || course.InstructorID != nil {
		t.Fatalf("dangling instructor should be cleared: %+v %v", course, err)
	}
}

func TestRestoreFromBlobFailuresKeepState(t *testing.T) {
	ctx := context.Background()
	sink := blob.NewMemory()
	svc := NewInMemoryService(nil, WithBlobStore(sink))
	seededService(t, svc)

	if _, err := svc.RestoreFromBlob(ctx, "backups/missing.json"); domain.KindOf(err) != domain.KindNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if _, err := sink.Put(ctx, "backups/garbage.json", strings.NewReader("{"), blob.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := svc.RestoreFromBlob(ctx, "backups/garbage.json"); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence failure, got %v", err)
	}
	if len(svc.ListStudents()) != 1 {
		t.Fatalf("failed restore must keep state")
	}
	if _, err := NewInMemoryService(nil).RestoreFromBlob(ctx, "k"); !errors.Is(err, ErrNoBlobStore) {
		t.Fatalf("expected ErrNoBlobStore, got %v", err)
	}
}

func TestDeleteBackup(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService(nil, WithBlobStore(blob.NewMemory()))
	seededService(t, svc)
	info, err := svc.BackupToBlob(ctx, "")
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if err := svc.DeleteBackup(ctx, info.Key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if list, err := svc.ListBackups(ctx); err != nil || len(list) != 0 {
		t.Fatalf("list after delete: %v %v", list, err)
	}
	if err := svc.DeleteBackup(ctx, info.Key); domain.KindOf(err) != domain.KindNotFound {
		t.Fatalf("expected NotFound on second delete, got %v", err)
	}
	if err := NewInMemoryService(nil).DeleteBackup(ctx, "k"); !errors.Is(err, ErrNoBlobStore) {
		t.Fatalf("expected ErrNoBlobStore, got %v", err)
	}
}
