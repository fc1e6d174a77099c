package services

import (
	"backend/models"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"
)

// AuditSink accepts audit entries for asynchronous persistence.
type AuditSink interface {
	Enqueue(entry models.AuditEntry)
}

// AuditService buffers activity-log entries and writes them from a
// background worker so the request path never blocks on the audit insert.
// Entries are enqueued only after the owning transaction committed.
type AuditService struct {
	db    *sql.DB
	queue chan models.AuditEntry
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewAuditService(db *sql.DB) *AuditService {
	a := &AuditService{
		db:    db,
		queue: make(chan models.AuditEntry, 256),
	}
	a.wg.Add(1)
	go a.worker()
	return a
}

func (a *AuditService) Enqueue(entry models.AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		// A mutation still in flight during shutdown must not panic on the
		// closed queue; its entry is dropped and logged instead.
		log.Printf("[audit] queue closed, dropping entry for quote %d", entry.QuoteID)
		return
	}

	select {
	case a.queue <- entry:
	default:
		// Audit is best effort once the queue backs up; dropping beats
		// blocking the request path.
		log.Printf("[audit] queue full, dropping entry for quote %d", entry.QuoteID)
	}
}

func (a *AuditService) worker() {
	defer a.wg.Done()
	for entry := range a.queue {
		if err := a.insert(entry); err != nil {
			log.Printf("[audit] failed to save entry for quote %d: %v", entry.QuoteID, err)
		}
	}
}

func (a *AuditService) insert(entry models.AuditEntry) error {
	description := entry.Attribute + " " + entry.EventName
	if entry.Before != entry.After {
		description = fmt.Sprintf("%s %s\nbefore: %s\nafter: %s",
			entry.Attribute, entry.EventName, entry.Before, entry.After)
	}

	var versionID interface{}
	if entry.VersionID != 0 {
		versionID = entry.VersionID
	}

	query := `
    INSERT INTO activity_logs (
        created_at, user_name, host_name, event_context, ip_address,
        description, event_name, quote_id, version_id
    ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := a.db.Exec(query,
		time.Now(), entry.UserName, entry.HostName, entry.EventContext, entry.IPAddress,
		description, entry.EventName, entry.QuoteID, versionID,
	)
	return err
}

// Shutdown stops accepting entries and drains the queue. Safe to call more
// than once; later Enqueue calls are dropped, not panicked.
func (a *AuditService) Shutdown(timeout time.Duration) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("audit queue did not drain within %s", timeout)
	}
}
