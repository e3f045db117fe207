package call

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kyochen/tablecart/internal/clock"
	"github.com/kyochen/tablecart/internal/domain"
	"github.com/kyochen/tablecart/internal/repository"
)

type fakeCallStates struct {
	GetFunc func(ctx context.Context) (*domain.CallState, error)
	SetFunc func(ctx context.Context, code string, updatedAt int64) error
}

func (f *fakeCallStates) Get(ctx context.Context) (*domain.CallState, error) {
	return f.GetFunc(ctx)
}

func (f *fakeCallStates) Set(ctx context.Context, code string, updatedAt int64) error {
	return f.SetFunc(ctx, code, updatedAt)
}

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestSet(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{name: "valid", code: "1234"},
		{name: "tooShort", code: "123", wantErr: true},
		{name: "tooLong", code: "12345", wantErr: true},
		{name: "letters", code: "12ab", wantErr: true},
		{name: "empty", code: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotCode string
			var gotTS int64
			states := &fakeCallStates{
				SetFunc: func(ctx context.Context, code string, updatedAt int64) error {
					gotCode = code
					gotTS = updatedAt
					return nil
				},
			}
			svc := New(states, nil, clock.NewFixed(testTime))

			err := svc.Set(context.Background(), tt.code)
			if tt.wantErr {
				if !errors.Is(err, ErrBadCode) {
					t.Fatalf("Set = %v, want ErrBadCode", err)
				}
				if gotCode != "" {
					t.Errorf("state written %q despite rejection", gotCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("Set: %v", err)
			}
			if gotCode != tt.code {
				t.Errorf("stored code = %q, want %q", gotCode, tt.code)
			}
			if gotTS != testTime.UnixMilli() {
				t.Errorf("stored ts = %d, want %d", gotTS, testTime.UnixMilli())
			}
		})
	}
}

func TestGet(t *testing.T) {
	t.Run("nothingCalledYet", func(t *testing.T) {
		states := &fakeCallStates{
			GetFunc: func(ctx context.Context) (*domain.CallState, error) {
				return nil, repository.ErrNotFound
			},
		}
		svc := New(states, nil, clock.NewFixed(testTime))

		st, err := svc.Get(context.Background())
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if st == nil || st.Code != "" || st.UpdatedAt != 0 {
			t.Errorf("state = %+v, want zero value", st)
		}
	})

	t.Run("returnsStoredState", func(t *testing.T) {
		states := &fakeCallStates{
			GetFunc: func(ctx context.Context) (*domain.CallState, error) {
				return &domain.CallState{Code: "4321", UpdatedAt: 99}, nil
			},
		}
		svc := New(states, nil, clock.NewFixed(testTime))

		st, err := svc.Get(context.Background())
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if st.Code != "4321" || st.UpdatedAt != 99 {
			t.Errorf("state = %+v, want 4321/99", st)
		}
	})
}
