package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorWrapper(t *testing.T) {
	t.Parallel()
	wrapper := NewWrapper("datastore", "load_city")

	t.Run("Wrap returns nil for nil error", func(t *testing.T) {
		t.Parallel()
		if result := wrapper.Wrap(nil, "資料載入失敗"); result != nil {
			t.Errorf("expected nil, got %v", result)
		}
	})

	t.Run("Wrap creates WrappedError", func(t *testing.T) {
		t.Parallel()
		wrapped := wrapper.Wrap(ErrNotFound, "資料載入失敗")

		var wrappedErr *WrappedError
		if !errors.As(wrapped, &wrappedErr) {
			t.Fatal("expected WrappedError type")
		}
		if wrappedErr.Module != "datastore" || wrappedErr.Operation != "load_city" {
			t.Errorf("unexpected context: %s/%s", wrappedErr.Module, wrappedErr.Operation)
		}
		if !errors.Is(wrapped, ErrNotFound) {
			t.Error("wrapped error should unwrap to ErrNotFound")
		}
	})

	t.Run("Wrapf formats message", func(t *testing.T) {
		t.Parallel()
		wrapped := wrapper.Wrapf(ErrNoData, "找不到 %s 的房價數據", "台北市")
		if got := GetUserMessage(wrapped); got != "找不到 台北市 的房價數據" {
			t.Errorf("unexpected user message %q", got)
		}
	})
}

func TestGetUserMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain error hides details", errors.New("dial tcp: refused"), GenericApology},
		{"wrapped", NewWrapper("m", "op").Wrap(ErrNoData, "找不到資料"), "找不到資料"},
		{"wrapped twice", fmt.Errorf("outer: %w", NewWrapper("m", "op").Wrap(ErrNoData, "找不到資料")), "找不到資料"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := GetUserMessage(tt.err); got != tt.want {
				t.Errorf("GetUserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationErrorIsInvalidInput(t *testing.T) {
	t.Parallel()
	err := NewValidationError("city", "unsupported city 高雄市")
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("validation error should match ErrInvalidInput")
	}
	if err.Error() != "validation failed on city: unsupported city 高雄市" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
