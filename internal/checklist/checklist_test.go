package checklist

import (
	"reflect"
	"testing"
	"time"

	"github.com/starford/dock/internal/models"
)

var now = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// view renders items as "text" or "text*" (completed) for compact assertions.
func view(items []models.ListItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Text
		if it.Completed {
			out[i] += "*"
		}
	}
	return out
}

func idOf(t *testing.T, items []models.ListItem, text string) string {
	t.Helper()
	for _, it := range items {
		if it.Text == text {
			return it.ID
		}
	}
	t.Fatalf("no item %q in %v", text, view(items))
	return ""
}

func TestAddToggleSequence(t *testing.T) {
	var items []models.ListItem
	items = Add(items, "A", now)
	if got := view(items); !reflect.DeepEqual(got, []string{"A"}) {
		t.Fatalf("after add A = %v", got)
	}
	items = Add(items, "B", now)
	if got := view(items); !reflect.DeepEqual(got, []string{"B", "A"}) {
		t.Fatalf("after add B = %v", got)
	}
	b := idOf(t, items, "B")
	items = Toggle(items, b)
	if got := view(items); !reflect.DeepEqual(got, []string{"A", "B*"}) {
		t.Fatalf("after toggle B = %v", got)
	}
	items = Toggle(items, b)
	if got := view(items); !reflect.DeepEqual(got, []string{"B", "A"}) {
		t.Fatalf("after toggle B again = %v", got)
	}
}

func TestAdd_AssignsIDAndTimestamp(t *testing.T) {
	items := Add(nil, "  milk  ", now)
	if items[0].ID == "" || items[0].Text != "milk" || items[0].CreatedAt != now.UnixMilli() {
		t.Errorf("item = %+v", items[0])
	}
	if got := Add(items, "   ", now); len(got) != 1 {
		t.Errorf("blank add changed list: %v", view(got))
	}
}

func TestToggle_CompletedGoesToBack(t *testing.T) {
	items := FromTexts([]string{"a", "b", "c"}, now)
	items = Toggle(items, idOf(t, items, "a"))
	items = Toggle(items, idOf(t, items, "b"))
	if got := view(items); !reflect.DeepEqual(got, []string{"c", "a*", "b*"}) {
		t.Errorf("order = %v, want [c a* b*]", got)
	}
}

func TestEdit(t *testing.T) {
	items := FromTexts([]string{"a", "b"}, now)
	edited := Edit(items, idOf(t, items, "b"), "  bee ")
	if got := view(edited); !reflect.DeepEqual(got, []string{"a", "bee"}) {
		t.Errorf("after edit = %v", got)
	}
	if got := view(Edit(items, idOf(t, items, "b"), "  ")); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("blank edit = %v", got)
	}
	if items[1].Text != "b" {
		t.Error("input mutated")
	}
}

func TestDelete(t *testing.T) {
	items := FromTexts([]string{"a", "b"}, now)
	items = Toggle(items, idOf(t, items, "b"))
	items = Delete(items, idOf(t, items, "b"))
	if got := view(items); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("after delete = %v", got)
	}
	if got := Delete(items, "missing"); len(got) != 1 {
		t.Errorf("delete of unknown id changed list")
	}
}

func TestReorder(t *testing.T) {
	items := FromTexts([]string{"a", "b", "c", "d"}, now)
	items = Toggle(items, idOf(t, items, "d"))

	cases := []struct {
		name     string
		from, to int
		want     []string
	}{
		{"move down", 0, 2, []string{"b", "c", "a", "d*"}},
		{"move up", 2, 0, []string{"c", "a", "b", "d*"}},
		{"target completed", 0, 3, []string{"a", "b", "c", "d*"}},
		{"source completed", 3, 0, []string{"a", "b", "c", "d*"}},
		{"out of range", 0, 9, []string{"a", "b", "c", "d*"}},
		{"negative", -1, 0, []string{"a", "b", "c", "d*"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := view(Reorder(items, tc.from, tc.to)); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Reorder(%d, %d) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestFromMarkdown_NormalizesOrder(t *testing.T) {
	items := FromMarkdown("- [x] done\n- [ ] todo\nnot a task\n- [ ] later", now)
	if got := view(items); !reflect.DeepEqual(got, []string{"todo", "later", "done*"}) {
		t.Errorf("items = %v", got)
	}
	seen := map[string]bool{}
	for _, it := range items {
		if seen[it.ID] {
			t.Fatalf("duplicate id %s", it.ID)
		}
		seen[it.ID] = true
	}
}
