package limiter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeRow struct{ scan func(dest ...any) error }

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakeQuerier struct {
	qrErr        error
	blockedUntil time.Time
	failsRet     int

	execSQL  []string
	execArgs [][]any
	execErr  error
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	f.execArgs = append(f.execArgs, args)
	return pgconn.CommandTag{}, f.execErr
}

func (f *fakeQuerier) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	switch {
	case strings.Contains(sql, "SELECT blocked_until"):
		return fakeRow{scan: func(dest ...any) error {
			if f.qrErr != nil {
				return f.qrErr
			}
			*(dest[0].(*time.Time)) = f.blockedUntil
			return nil
		}}
	case strings.Contains(sql, "RETURNING fail_count"):
		return fakeRow{scan: func(dest ...any) error {
			if f.qrErr != nil {
				return f.qrErr
			}
			*(dest[0].(*int)) = f.failsRet
			return nil
		}}
	default:
		return fakeRow{scan: func(...any) error { return errors.New("unexpected query") }}
	}
}

func newPG(fq *fakeQuerier, maxFails int, blockFor time.Duration) (*PG, time.Time) {
	l := NewPG(fq, 15*time.Minute, maxFails, blockFor)
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, now
}

func TestAllow(t *testing.T) {
	dev := HashDevice("laptop")

	t.Run("no row allows", func(t *testing.T) {
		l, _ := newPG(&fakeQuerier{qrErr: pgx.ErrNoRows}, 5, time.Minute)
		ok, dur, err := l.Allow(context.Background(), "u", dev)
		if err != nil || !ok || dur != 0 {
			t.Fatalf("ok=%v dur=%v err=%v", ok, dur, err)
		}
	})

	t.Run("blocked until future", func(t *testing.T) {
		fq := &fakeQuerier{}
		l, now := newPG(fq, 5, time.Minute)
		fq.blockedUntil = now.Add(10 * time.Minute)
		ok, dur, err := l.Allow(context.Background(), "u", dev)
		if err != nil || ok || dur != 10*time.Minute {
			t.Fatalf("ok=%v dur=%v err=%v", ok, dur, err)
		}
	})

	t.Run("past block allows", func(t *testing.T) {
		fq := &fakeQuerier{}
		l, now := newPG(fq, 5, time.Minute)
		fq.blockedUntil = now.Add(-time.Second)
		ok, _, err := l.Allow(context.Background(), "u", dev)
		if err != nil || !ok {
			t.Fatalf("ok=%v err=%v", ok, err)
		}
	})

	t.Run("db error propagates", func(t *testing.T) {
		l, _ := newPG(&fakeQuerier{qrErr: errors.New("db boom")}, 5, time.Minute)
		ok, _, err := l.Allow(context.Background(), "u", dev)
		if err == nil || ok {
			t.Fatalf("want error, got ok=%v err=%v", ok, err)
		}
	})
}

func TestSuccess(t *testing.T) {
	fq := &fakeQuerier{}
	l, _ := newPG(fq, 5, time.Minute)
	if err := l.Success(context.Background(), "u", []byte("h")); err != nil {
		t.Fatalf("success err: %v", err)
	}
	if len(fq.execSQL) != 1 || !strings.Contains(fq.execSQL[0], "INSERT INTO auth_limiter") {
		t.Fatalf("unexpected exec: %v", fq.execSQL)
	}

	fq = &fakeQuerier{execErr: errors.New("exec fail")}
	l, _ = newPG(fq, 5, time.Minute)
	if err := l.Success(context.Background(), "u", []byte("h")); err == nil {
		t.Fatalf("want exec error")
	}
}

func TestFailure(t *testing.T) {
	t.Run("below threshold", func(t *testing.T) {
		fq := &fakeQuerier{failsRet: 2}
		l, _ := newPG(fq, 5, 10*time.Minute)
		blocked, dur, err := l.Failure(context.Background(), "u", []byte("h"))
		if err != nil || blocked || dur != 0 {
			t.Fatalf("blocked=%v dur=%v err=%v", blocked, dur, err)
		}
		if len(fq.execSQL) != 0 {
			t.Fatalf("no block update expected, got %v", fq.execSQL)
		}
	})

	t.Run("blocks at threshold", func(t *testing.T) {
		fq := &fakeQuerier{failsRet: 5}
		l, now := newPG(fq, 5, 10*time.Minute)
		blocked, dur, err := l.Failure(context.Background(), "u", []byte("h"))
		if err != nil || !blocked || dur != 10*time.Minute {
			t.Fatalf("blocked=%v dur=%v err=%v", blocked, dur, err)
		}
		if !strings.Contains(fq.execSQL[0], "UPDATE auth_limiter SET blocked_until") {
			t.Fatalf("must update blocked_until, exec=%s", fq.execSQL[0])
		}
		if got := fq.execArgs[0][2].(time.Time); !got.Equal(now.Add(10 * time.Minute)) {
			t.Fatalf("blocked_until=%v", got)
		}
	})

	t.Run("returning error", func(t *testing.T) {
		l, _ := newPG(&fakeQuerier{qrErr: errors.New("query error")}, 5, time.Minute)
		if _, _, err := l.Failure(context.Background(), "u", []byte("h")); err == nil {
			t.Fatalf("want error from returning fail_count")
		}
	})
}

func TestNop(t *testing.T) {
	var l Limiter = Nop{}
	ok, _, err := l.Allow(context.Background(), "u", nil)
	if !ok || err != nil {
		t.Fatalf("nop must allow")
	}
	blocked, _, err := l.Failure(context.Background(), "u", nil)
	if blocked || err != nil {
		t.Fatalf("nop must never block")
	}
	if err := l.Success(context.Background(), "u", nil); err != nil {
		t.Fatalf("nop success: %v", err)
	}
}

func TestHashDevice(t *testing.T) {
	a := HashDevice("host-a")
	b := HashDevice("host-a")
	c := HashDevice("host-b")
	if string(a) != string(b) || string(a) == string(c) || len(a) != 32 {
		t.Fatalf("hash mismatch/len: %d", len(a))
	}
	if len(LocalDevice()) != 32 {
		t.Fatalf("local device hash length")
	}
}
