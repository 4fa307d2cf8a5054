package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecotrack/internal/core"
	"ecotrack/internal/memory"
)

func TestSubmitInquiry(t *testing.T) {
	store := memory.New()
	s := NewInquiryService(store, quietLogger())

	out, err := s.Submit(context.Background(), core.BusinessInquiry{
		CompanyName: " Acme ",
		ContactName: "Sam",
		Email:       " sam@acme.test ",
		Message:     "We'd like a team plan.",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out.ID)
	assert.False(t, out.CreatedAt.IsZero())
	assert.Equal(t, "Acme", out.CompanyName)
	assert.Equal(t, "sam@acme.test", out.Email)
	assert.Len(t, store.Inquiries(), 1)
}

func TestSubmitInquiryValidation(t *testing.T) {
	store := memory.New()
	s := NewInquiryService(store, quietLogger())

	_, err := s.Submit(context.Background(), core.BusinessInquiry{CompanyName: "Acme", ContactName: "Sam", Email: "nope", Message: "hi"})
	assert.ErrorIs(t, err, core.ErrInvalidEmail)
	_, err = s.Submit(context.Background(), core.BusinessInquiry{ContactName: "Sam", Email: "sam@acme.test", Message: "hi"})
	assert.ErrorIs(t, err, core.ErrEmptyCompanyName)
	assert.Empty(t, store.Inquiries())
}
