package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBusy = errors.New("busy")

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}
}

func TestRetry_SucceedsAfterTransientErrors(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(), func() error {
		calls++
		if calls < 3 {
			return errBusy
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Errorf("err %v after %d calls", err, calls)
	}
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	cfg := fastRetry()
	cfg.Retryable = func(err error) bool { return errors.Is(err, errBusy) }

	calls := 0
	permanent := errors.New("constraint failed")
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) || calls != 1 {
		t.Errorf("err %v after %d calls", err, calls)
	}
}

func TestRetry_ReturnsLastErrorWhenExhausted(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(), func() error {
		calls++
		return errBusy
	})
	if !errors.Is(err, errBusy) || calls != 3 {
		t.Errorf("err %v after %d calls", err, calls)
	}
}

func TestRetry_HonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastRetry()
	cfg.InitialDelay = time.Hour
	cfg.MaxDelay = time.Hour

	err := Retry(ctx, cfg, func() error {
		cancel()
		return errBusy
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestCalculateBackoff(t *testing.T) {
	if got := CalculateBackoff(2, 100*time.Millisecond, time.Second, 2); got != 400*time.Millisecond {
		t.Errorf("attempt 2 = %v", got)
	}
	if got := CalculateBackoff(10, 100*time.Millisecond, time.Second, 2); got != time.Second {
		t.Errorf("capped backoff = %v", got)
	}
}

func TestTradingCalendar(t *testing.T) {
	friday := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	monday := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	if !IsTradingDay(friday) || IsTradingDay(friday.AddDate(0, 0, 1)) {
		t.Error("weekday classification wrong")
	}
	if got := PreviousTradingDay(monday); !got.Equal(friday) {
		t.Errorf("PreviousTradingDay(monday) = %v", got)
	}
	if got := TradingDaysBetween(friday, monday); got != 1 {
		t.Errorf("Friday to Monday = %d trading days, want 1", got)
	}
	if got := TradingDaysBetween(friday, friday.AddDate(0, 0, 14)); got != 10 {
		t.Errorf("two weeks = %d trading days, want 10", got)
	}
	if got := TradingDaysBetween(monday, friday); got != 0 {
		t.Errorf("reversed range = %d", got)
	}
}
