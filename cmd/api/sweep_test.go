package main

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	To   string
	Body string
}

// fakeOutbox records attempted sends and fails for numbers in failFor.
type fakeOutbox struct {
	attempts []sentMessage
	failFor  map[string]bool
}

func (f *fakeOutbox) send(_ context.Context, to, body string) (string, error) {
	f.attempts = append(f.attempts, sentMessage{To: to, Body: body})
	if f.failFor[to] {
		return "", errors.New("carrier rejected")
	}
	return "SM" + fmt.Sprint(len(f.attempts)), nil
}

func newTestSweeper(records []BirthdayRecord, outbox *fakeOutbox, now time.Time) *Sweeper {
	return &Sweeper{
		List: func(ctx context.Context) ([]BirthdayRecord, error) {
			return records, nil
		},
		Send:  outbox.send,
		Clock: clockwork.NewFakeClockAt(now),
		Loc:   time.UTC,
	}
}

func TestRunSweep_SendsOnlyTodaysBirthdays(t *testing.T) {
	now := time.Date(2025, 7, 31, 9, 0, 0, 0, time.UTC)
	records := []BirthdayRecord{
		{ID: "a", FirstName: "Alice", LastName: "Ng", BirthDate: date(1990, 7, 31), Phone: "+15550100"},
		{ID: "b", FirstName: "Bob", BirthDate: date(1955, 12, 25), Phone: "+15550101"},
	}
	outbox := &fakeOutbox{}
	sweeper := newTestSweeper(records, outbox, now)

	sent, failed := sweeper.RunSweep(context.Background())

	assert.Equal(t, 1, sent)
	assert.Equal(t, 0, failed)
	require.Len(t, outbox.attempts, 1)
	assert.Equal(t, "+15550100", outbox.attempts[0].To)
	assert.Contains(t, outbox.attempts[0].Body, "Alice Ng")
	assert.Contains(t, outbox.attempts[0].Body, "35th")
}

func TestRunSweep_ContinuesPastFailedSend(t *testing.T) {
	now := time.Date(2025, 7, 31, 9, 0, 0, 0, time.UTC)
	records := []BirthdayRecord{
		{ID: "a", FirstName: "Alice", BirthDate: date(1990, 7, 31), Phone: "+15550100"},
		{ID: "b", FirstName: "Bob", BirthDate: date(1985, 7, 31), Phone: "+15550101"},
		{ID: "c", FirstName: "Carol", BirthDate: date(1970, 7, 31), Phone: "+15550102"},
	}
	outbox := &fakeOutbox{failFor: map[string]bool{"+15550101": true}}
	sweeper := newTestSweeper(records, outbox, now)

	sent, failed := sweeper.RunSweep(context.Background())

	assert.Equal(t, 2, sent)
	assert.Equal(t, 1, failed)
	// All three were attempted despite the middle failure.
	require.Len(t, outbox.attempts, 3)
	assert.Equal(t, "+15550102", outbox.attempts[2].To)
}

func TestRunSweep_LeaplingFiresOnMarchFirst(t *testing.T) {
	// Non-leap year: the Feb 29 birth resolves to Mar 1 and gets its wish.
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	records := []BirthdayRecord{
		{ID: "leap", FirstName: "Lea", BirthDate: date(2000, 2, 29), Phone: "+15550100"},
		{ID: "b", FirstName: "Bob", BirthDate: date(1955, 3, 2), Phone: "+15550101"},
	}
	outbox := &fakeOutbox{}
	sweeper := newTestSweeper(records, outbox, now)

	sent, failed := sweeper.RunSweep(context.Background())

	assert.Equal(t, 1, sent)
	assert.Equal(t, 0, failed)
	require.Len(t, outbox.attempts, 1)
	assert.Equal(t, "+15550100", outbox.attempts[0].To)
	assert.Contains(t, outbox.attempts[0].Body, "Lea")

	// In a leap year the same record fires on Feb 29 itself.
	leapNow := time.Date(2024, 2, 29, 9, 0, 0, 0, time.UTC)
	leapOutbox := &fakeOutbox{}
	leapSweeper := newTestSweeper(records[:1], leapOutbox, leapNow)
	sent, _ = leapSweeper.RunSweep(context.Background())
	assert.Equal(t, 1, sent)
}

func TestRunSweep_NoMatchesSendsNothing(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	records := []BirthdayRecord{
		{ID: "a", FirstName: "Alice", BirthDate: date(1990, 7, 31), Phone: "+15550100"},
	}
	outbox := &fakeOutbox{}
	sweeper := newTestSweeper(records, outbox, now)

	sent, failed := sweeper.RunSweep(context.Background())

	assert.Zero(t, sent)
	assert.Zero(t, failed)
	assert.Empty(t, outbox.attempts)
}

func TestRunSweep_ListFailure(t *testing.T) {
	outbox := &fakeOutbox{}
	sweeper := &Sweeper{
		List: func(ctx context.Context) ([]BirthdayRecord, error) {
			return nil, errors.New("db down")
		},
		Send:  outbox.send,
		Clock: clockwork.NewFakeClockAt(time.Date(2025, 7, 31, 9, 0, 0, 0, time.UTC)),
		Loc:   time.UTC,
	}
	sent, failed := sweeper.RunSweep(context.Background())
	assert.Zero(t, sent)
	assert.Zero(t, failed)
	assert.Empty(t, outbox.attempts)
}
