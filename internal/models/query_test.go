package models

import (
	"testing"
)

func TestRetrievalQuery_Validate(t *testing.T) {
	tests := []struct {
		name     string
		query    *RetrievalQuery
		wantErr  bool
		wantTopK int
	}{
		{"empty query", &RetrievalQuery{Text: ""}, true, 0},
		{"sets default top k", &RetrievalQuery{Text: "x"}, false, 2},
		{"keeps explicit top k", &RetrievalQuery{Text: "x", TopK: 7}, false, 7},
		{"caps top k", &RetrievalQuery{Text: "x", TopK: 500}, false, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && tt.query.TopK != tt.wantTopK {
				t.Errorf("TopK = %d, want %d", tt.query.TopK, tt.wantTopK)
			}
		})
	}
}
