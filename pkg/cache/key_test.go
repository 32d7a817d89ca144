package cache

import (
	"strings"
	"testing"
	"time"
)

func TestCacheKey_String(t *testing.T) {
	from := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("CET", 3600))

	tests := []struct {
		name string
		key  CacheKey
		want string
	}{
		{
			name: "family only",
			key:  CacheKey{Family: FamilyStats},
			want: "stats_user=:seance=:",
		},
		{
			name: "user scoped with params",
			key: CacheKey{
				Family: FamilySets,
				UserID: "u1",
				Params: []Param{P("exercise", "squat"), P("page", 1), P("limit", 20)},
			},
			want: "sets_user=u1:seance=:exercise=squat:page=1:limit=20",
		},
		{
			name: "missing filters keep their slot",
			key: CacheKey{
				Family: FamilyPRs,
				UserID: "u1",
				Params: []Param{P("exercise", nil), P("unit", ""), P("to", (*time.Time)(nil))},
			},
			want: "prs_user=u1:seance=:exercise=:unit=:to=",
		},
		{
			name: "times render in UTC",
			key: CacheKey{
				Family: FamilySets,
				UserID: "u1",
				Params: []Param{P("from", from), P("to", time.Time{})},
			},
			want: "sets_user=u1:seance=:from=2024-01-02T02%3A04%3A05Z:to=",
		},
		{
			name: "seance scoped",
			key: CacheKey{
				Family:   FamilyComments,
				SeanceID: "s9",
			},
			want: "comments_user=:seance=s9:",
		},
		{
			name: "separators in values are escaped",
			key: CacheKey{
				Family: FamilySets,
				UserID: "u1",
				Params: []Param{P("exercise", "a:b=c")},
			},
			want: "sets_user=u1:seance=:exercise=a%3Ab%3Dc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.key.String()
			if got != tt.want {
				t.Errorf("CacheKey.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestCacheKey_Determinism ensures same input always produces same key
func TestCacheKey_Determinism(t *testing.T) {
	key := CacheKey{
		Family: FamilySets,
		UserID: "u1",
		Params: []Param{P("exercise", "squat"), P("page", 2), P("weight", 42.5)},
	}

	first := key.String()
	for i := 0; i < 10; i++ {
		if got := key.String(); got != first {
			t.Errorf("result[%d] = %v, want %v (not deterministic)", i, got, first)
		}
	}
}

func TestCacheKey_DistinctFilters(t *testing.T) {
	base := CacheKey{Family: FamilySets, UserID: "u1", Params: []Param{P("page", 1), P("limit", 20)}}
	variants := []CacheKey{
		{Family: FamilySets, UserID: "u1", Params: []Param{P("page", 2), P("limit", 20)}},
		{Family: FamilySets, UserID: "u1", Params: []Param{P("page", 1), P("limit", 21)}},
		{Family: FamilySets, UserID: "u12", Params: []Param{P("page", 1), P("limit", 20)}},
		{Family: FamilyPRs, UserID: "u1", Params: []Param{P("page", 1), P("limit", 20)}},
	}

	for _, v := range variants {
		if v.String() == base.String() {
			t.Errorf("keys collide: %s", v.String())
		}
	}
}

func TestCacheKey_ScopePrefix(t *testing.T) {
	key := CacheKey{Family: FamilySets, UserID: "u1", Params: []Param{P("page", 1)}}
	other := CacheKey{Family: FamilySets, UserID: "u12", Params: []Param{P("page", 1)}}

	prefix := CacheKey{Family: FamilySets, UserID: "u1"}.ScopePrefix()
	if !strings.HasPrefix(key.String(), prefix) {
		t.Errorf("%s should start with %s", key.String(), prefix)
	}
	if strings.HasPrefix(other.String(), prefix) {
		t.Errorf("%s must not match the prefix of another user", other.String())
	}
	if !strings.HasPrefix(key.String(), key.FamilyPrefix()) {
		t.Errorf("%s should start with %s", key.String(), key.FamilyPrefix())
	}
}

func TestCacheKey_Tags(t *testing.T) {
	key := CacheKey{
		Family:   FamilyReactions,
		SeanceID: "s1",
		Labels:   []string{CommentTag("c1")},
	}

	got := key.Tags()
	want := []string{"family:reactions", "seance:s1", "comment:c1"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Tags() = %v, want %v", got, want)
	}

	userKey := CacheKey{Family: FamilySets, UserID: "u1"}
	got = userKey.Tags()
	want = []string{"family:sets", "family:sets:user:u1"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Tags() = %v, want %v", got, want)
	}
}
