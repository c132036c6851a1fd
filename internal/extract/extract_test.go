package extract

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jetrug/companysheet/internal/common"
)

func TestClientExtract_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/extract", r.URL.Path)

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "deck.pdf", hdr.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`["page one text", "page two text"]`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL}, nil)
	pages, err := c.Extract(context.Background(), "deck.pdf", []byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	assert.Equal(t, []string{"page one text", "page two text"}, pages)
}

func TestClientExtract_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL}, nil)
	_, err := c.Extract(context.Background(), "deck.pdf", []byte("x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrExtractionFailed))
}

func TestClientExtract_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not": "an array"}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL}, nil)
	_, err := c.Extract(context.Background(), "deck.pdf", []byte("x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrExtractionFailed))
}

func TestValidateIntake_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		data     []byte
	}{
		{"empty file", "deck.pdf", nil},
		{"wrong extension", "deck.docx", []byte("%PDF-1.4")},
		{"wrong content", "deck.pdf", []byte("just plain text, no pdf magic")},
		{"pdf magic but unreadable", "deck.pdf", []byte("%PDF-1.4 garbage that is not a document")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateIntake(tt.fileName, tt.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrIntakeRejected), "got %v", err)
		})
	}
}
