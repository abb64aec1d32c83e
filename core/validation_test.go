package core

import (
	"errors"
	"testing"
	"time"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name:    "valid document with vector",
			doc:     &Document{Id: 1, Text: "budget review", Vector: []float32{1, 0, 0}},
			wantErr: nil,
		},
		{
			name:    "valid document without vector",
			doc:     &Document{Id: 1, Text: "budget review"},
			wantErr: nil,
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "zero id",
			doc:     &Document{Id: 0, Text: "budget review"},
			wantErr: ErrInvalidID,
		},
		{
			name:    "blank text",
			doc:     &Document{Id: 1, Text: "   \n\t"},
			wantErr: ErrEmptyContent,
		},
		{
			name:    "wrong dimension",
			doc:     &Document{Id: 1, Text: "budget review", Vector: []float32{1, 0}},
			wantErr: ErrInvalidDimension,
		},
		{
			name:    "empty vector is not nil",
			doc:     &Document{Id: 1, Text: "budget review", Vector: []float32{}},
			wantErr: ErrInvalidDimension,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc, 3)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDimension(t *testing.T) {
	if err := ValidateDimension([]float32{1, 2, 3, 4}, 4); err != nil {
		t.Errorf("ValidateDimension() unexpected error = %v", err)
	}
	if err := ValidateDimension([]float32{1, 2, 3}, 4); !errors.Is(err, ErrInvalidDimension) {
		t.Errorf("ValidateDimension() error = %v, want %v", err, ErrInvalidDimension)
	}
}

func TestValidateMeeting(t *testing.T) {
	validTime := time.Now().Add(-1 * time.Hour)
	futureTime := time.Now().Add(1 * time.Hour)

	tests := []struct {
		name    string
		meeting *Meeting
		wantErr error
	}{
		{
			name:    "valid meeting",
			meeting: &Meeting{Title: "Weekly sync", CreatedAt: validTime},
		},
		{
			name:    "nil meeting",
			wantErr: ErrInvalidMeeting,
		},
		{
			name:    "blank title",
			meeting: &Meeting{Title: " ", CreatedAt: validTime},
			wantErr: ErrEmptyContent,
		},
		{
			name:    "future timestamp",
			meeting: &Meeting{Title: "Weekly sync", CreatedAt: futureTime},
			wantErr: ErrInvalidMeeting,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMeeting(tt.meeting)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateMeeting() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateMeeting() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "length mismatch", a: []float32{1}, b: []float32{1, 1}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeVector(t *testing.T) {
	got := NormalizeVector([]float32{3, 4})
	if d0, d1 := got[0]-0.6, got[1]-0.8; d0 > 1e-6 || d0 < -1e-6 || d1 > 1e-6 || d1 < -1e-6 {
		t.Errorf("NormalizeVector() = %v, want [0.6 0.8]", got)
	}

	zero := NormalizeVector([]float32{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("NormalizeVector(zero) = %v, want zeros", zero)
	}
}
