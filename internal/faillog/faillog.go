// Package faillog – failure log aggregator
//
// This package records operational failures in the shared document store so
// the back office can monitor them. Identical messages collapse into one
// document: the document ID is the MD5 hex digest of the message text, and
// repeats bump a counter and refresh the last-seen timestamp instead of
// creating a new entry. Recording is best effort; a failure to log never
// interrupts the dispatch that produced it.
package faillog

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/casaluz/go-notify-backend/internal/docstore"
	"github.com/casaluz/go-notify-backend/internal/domain"
)

const collection = "logs_fallas"

// Field names fixed by the shared store.
const (
	fieldMessage   = "mensaje"
	fieldContext   = "contexto"
	fieldCounter   = "contador"
	fieldRead      = "leido"
	fieldLastSeen  = "ultima_vez"
	fieldFirstSeen = "fecha_inicial"
)

// Store defines the document store operations the aggregator needs.
type Store interface {
	Get(ctx context.Context, collection, id string) (*docstore.Document, error)
	Set(ctx context.Context, collection, id string, fields docstore.Fields) (*docstore.Document, error)
	Patch(ctx context.Context, collection, id string, fields docstore.Fields) (*docstore.Document, error)
	QueryOrdered(ctx context.Context, parent, collection, orderField string, desc bool) ([]docstore.Document, error)
}

// Logger aggregates failure entries per company.
type Logger struct {
	Store Store

	// Location is the business timezone used for the stored timestamps.
	Location *time.Location
	// Now is the clock, injectable for tests. Nil means time.Now.
	Now func() time.Time
}

// New constructs a Logger on the given store in the given timezone.
func New(store Store, loc *time.Location) *Logger {
	return &Logger{Store: store, Location: loc}
}

func (l *Logger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

func collectionPath(company string) string {
	return fmt.Sprintf("empresas/%s/%s", company, collection)
}

// EntryID returns the document ID a message aggregates under.
func EntryID(message string) string {
	sum := md5.Sum([]byte(message))
	return hex.EncodeToString(sum[:])
}

// Record stores a failure, merging it into the existing entry when the same
// message was already logged. Merged entries come back unread so repeats
// resurface in the monitoring feed. Errors are logged and swallowed.
func (l *Logger) Record(ctx context.Context, company, message, contextLabel string) {
	id := EntryID(message)
	path := collectionPath(company)
	now := l.now().In(l.Location).Format(time.RFC3339)

	existing, err := l.Store.Get(ctx, path, id)
	if err == nil {
		counter := existing.Fields.GetInt(fieldCounter, 0) + 1
		_, err = l.Store.Patch(ctx, path, id, docstore.Fields{
			fieldCounter:  docstore.Int(counter),
			fieldLastSeen: docstore.String(now),
			fieldRead:     docstore.Bool(false),
		})
		if err != nil {
			log.Warn().Err(err).Str("company", company).Str("entry", id).Msg("failure log increment failed")
		}
		return
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		log.Warn().Err(err).Str("company", company).Str("entry", id).Msg("failure log lookup failed")
	}

	_, err = l.Store.Set(ctx, path, id, docstore.Fields{
		fieldMessage:   docstore.String(message),
		fieldContext:   docstore.String(contextLabel),
		fieldCounter:   docstore.Int(1),
		fieldRead:      docstore.Bool(false),
		fieldLastSeen:  docstore.String(now),
		fieldFirstSeen: docstore.String(now),
	})
	if err != nil {
		log.Warn().Err(err).Str("company", company).Str("entry", id).Msg("failure log write failed")
	}
}

// Feed returns every failure entry of a company, newest first, plus the
// number of unread entries. A store error yields an empty feed rather than
// failing the monitoring endpoint.
func (l *Logger) Feed(ctx context.Context, company string) ([]domain.FailureLogEntry, int) {
	docs, err := l.Store.QueryOrdered(ctx, "empresas/"+company, collection, fieldLastSeen, true)
	if err != nil {
		log.Warn().Err(err).Str("company", company).Msg("failure feed query failed")
		return []domain.FailureLogEntry{}, 0
	}
	entries := make([]domain.FailureLogEntry, 0, len(docs))
	unread := 0
	for _, doc := range docs {
		entry := domain.FailureLogEntry{
			ID:        doc.ID(),
			Message:   doc.Fields.GetString(fieldMessage, ""),
			Context:   doc.Fields.GetString(fieldContext, ""),
			Counter:   int(doc.Fields.GetInt(fieldCounter, 0)),
			Read:      doc.Fields.GetBool(fieldRead, false),
			FirstSeen: doc.Fields.GetString(fieldFirstSeen, ""),
			LastSeen:  doc.Fields.GetString(fieldLastSeen, ""),
		}
		if !entry.Read {
			unread++
		}
		entries = append(entries, entry)
	}
	return entries, unread
}

// MarkRead flags one entry as acknowledged so it drops out of the unread
// count. It stays in the feed until the same failure recurs.
func (l *Logger) MarkRead(ctx context.Context, company, entryID string) error {
	_, err := l.Store.Patch(ctx, collectionPath(company), entryID, docstore.Fields{
		fieldRead: docstore.Bool(true),
	})
	return err
}
