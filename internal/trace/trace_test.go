package trace

import (
	"testing"
	"time"

	"github.com/matsen/btreeplay/internal/catalog"
	"github.com/stretchr/testify/require"
)

func leafStep(msg string, ids ...string) catalog.Step {
	n := &catalog.TreeNode{}
	for _, id := range ids {
		n.Keys = append(n.Keys, catalog.Key{ID: id})
	}
	return catalog.Step{Tree: n, Message: msg}
}

func TestInferOperation(t *testing.T) {
	tests := []struct {
		name  string
		steps []catalog.Step
		want  Operation
	}{
		{"insert", []catalog.Step{leafStep("Chèn B001", "B001")}, OpInsert},
		{"split implies insert", []catalog.Step{leafStep("Tách node", "B001")}, OpInsert},
		{"delete wins over insert", []catalog.Step{leafStep("Chèn"), leafStep("Gộp node")}, OpDelete},
		{"range wins", []catalog.Step{leafStep("Xóa"), leafStep("Range candidates")}, OpRange},
		{"search", []catalog.Step{leafStep("Tìm thấy B002")}, OpSearch},
		{"plain visit", []catalog.Step{leafStep("visit root")}, OpSearch},
		{"nothing", nil, OpUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, InferOperation(tt.steps))
		})
	}
}

func TestFromResponse(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("ICT", 7*3600))
	resp := &catalog.Response{
		Success: true,
		Message: "Xóa sách thành công",
		Book:    &catalog.Key{ID: "B002"},
		Steps:   []catalog.Step{leafStep("Xóa B002", "B001", "B002"), leafStep("done", "B001")},
	}

	tr, err := FromResponse(resp, "", now)
	require.NoError(t, err)
	require.Equal(t, OpDelete, tr.Operation)
	require.Equal(t, "B002", tr.Target)
	require.Equal(t, "Xóa sách thành công", tr.Name)
	require.Len(t, tr.Fingerprint, 16)
	require.Equal(t, "tr-"+tr.Fingerprint[:8], tr.ID)
	require.Equal(t, time.UTC, tr.ImportedAt.Location())
	require.Equal(t, []string{"B001", "B002"}, tr.Keys())

	_, err = FromResponse(&catalog.Response{}, "x", now)
	require.ErrorIs(t, err, ErrNoSteps)
}

func TestFingerprint_ContentOnly(t *testing.T) {
	a := []catalog.Step{leafStep("Chèn B001", "B001")}
	b := []catalog.Step{leafStep("Chèn B001", "B001")}
	c := []catalog.Step{leafStep("Chèn B002", "B002")}

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	fb, _ := Fingerprint(b)
	fc, _ := Fingerprint(c)
	require.Equal(t, fa, fb)
	require.NotEqual(t, fa, fc)
}

func TestTrace_Step(t *testing.T) {
	tr := &Trace{Steps: []catalog.Step{leafStep("a"), leafStep("b"), leafStep("c")}}

	s, err := tr.Step(-1)
	require.NoError(t, err)
	require.Equal(t, "c", s.Message)

	s, err = tr.Step(1)
	require.NoError(t, err)
	require.Equal(t, "b", s.Message)

	_, err = tr.Step(3)
	require.Error(t, err)
	_, err = tr.Step(-4)
	require.Error(t, err)
}

func TestParseOperation(t *testing.T) {
	op, err := ParseOperation("range")
	require.NoError(t, err)
	require.Equal(t, OpRange, op)

	_, err = ParseOperation("upsert")
	require.Error(t, err)
}
