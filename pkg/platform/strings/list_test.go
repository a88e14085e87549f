package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"blanks only", " , ,", nil},
		{"trims and dedupes", " kafka:9092, kafka2:9092 ,kafka:9092", []string{"kafka:9092", "kafka2:9092"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SplitList(tc.raw, ","))
		})
	}
}
