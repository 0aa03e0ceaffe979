package scenario_test

import (
	"context"
	"fmt"
	"pagediff/internal/scenario"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseURLPairs(t *testing.T) {
	type in struct {
		first string
	}

	type want struct {
		first  []scenario.URLPair
		second int
	}

	tests := []struct {
		name string
		in   in
		want want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				"",
			},
			want{
				[]scenario.URLPair{},
				0,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				"https://a\nhttps://b\n",
			},
			want{
				[]scenario.URLPair{{URL1: "https://a", URL2: "https://b"}},
				0,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				"  https://a  \r\n\n\n https://b\r\nhttps://c\n   \n",
			},
			want{
				[]scenario.URLPair{{URL1: "https://a", URL2: "https://b"}},
				1,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				"1\n2\n3\n4",
			},
			want{
				[]scenario.URLPair{{URL1: "1", URL2: "2"}, {URL1: "3", URL2: "4"}},
				0,
			},
		},
	}
	for _, tt := range tests {
		name := tt.name
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			pairs, unpaired := scenario.ParseURLPairs(in.first)
			if diff := cmp.Diff(want.first, pairs); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(want.second, unpaired); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestImport(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := newStore(t)

	created, unpaired, err := scenario.Import(ctx, s, "https://a\nhttps://b\nhttps://c", "c1")
	if err != nil {
		t.Fatal(err)
	}
	if unpaired != 1 || len(created) != 1 {
		t.Fatalf("Expected 1 scenario and 1 unpaired line, got %d and %d", len(created), unpaired)
	}
	if created[0].Name != "https://a vs https://b" || created[0].CollectionID != "c1" {
		t.Errorf("Unexpected scenario %+v", created[0])
	}

	listed, err := s.ListScenarios(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 {
		t.Errorf("Expected the scenario to be stored, got %d", len(listed))
	}
}
