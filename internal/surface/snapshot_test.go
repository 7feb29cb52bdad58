package surface

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lessonFixture = `
<html><body>
<div id="act-1" class="interactive-activity-container multiple-choice-content-resource">
  <div class="activity-title-bar"><div class="zb-chevron filled" title="Complete"></div></div>
  <div class="question-set-question">
    <label class="zb-radio-button"><span>2</span></label>
    <label class="zb-radio-button"><span>4</span></label>
    <div class="zb-explanation correct" style="display: none">Correct, 4 is right.</div>
  </div>
</div>
<div id="act-2" class="interactive-activity-container animation-player-content-resource">
  <div class="activity-title-bar"><div class="zb-chevron" title="Incomplete"></div></div>
  <button class="start-button">Start</button>
  <div class="speed-control"><input type="checkbox" name="speed"></div>
</div>
</body></html>`

func parseFixture(t *testing.T) *Snapshot {
	t.Helper()
	snap, err := NewSnapshot(strings.NewReader(lessonFixture))
	require.NoError(t, err)
	return snap
}

func TestSnapshotFindDocumentOrder(t *testing.T) {
	snap := parseFixture(t)
	ctx := context.Background()

	chevrons, err := snap.Find(ctx, nil, ".zb-chevron")
	require.NoError(t, err)
	require.Len(t, chevrons, 2)

	filled, err := chevrons[0].HasClass(ctx, "filled")
	require.NoError(t, err)
	assert.True(t, filled)

	filled, err = chevrons[1].HasClass(ctx, "filled")
	require.NoError(t, err)
	assert.False(t, filled)
}

func TestSnapshotFindScoped(t *testing.T) {
	snap := parseFixture(t)
	ctx := context.Background()

	scopes, err := snap.Find(ctx, nil, ".interactive-activity-container.multiple-choice-content-resource .question-set-question")
	require.NoError(t, err)
	require.Len(t, scopes, 1)

	labels, err := snap.Find(ctx, scopes[0], "label.zb-radio-button")
	require.NoError(t, err)
	assert.Len(t, labels, 2)

	// The chevron lives outside the question scope.
	chevrons, err := snap.Find(ctx, scopes[0], ".zb-chevron")
	require.NoError(t, err)
	assert.Empty(t, chevrons)
}

func TestSnapshotSelectorForms(t *testing.T) {
	snap := parseFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		selector string
		want     int
	}{
		{"id", "#act-2", 1},
		{"tag and class", "button.start-button", 1},
		{"attribute with value", "input[type=checkbox]", 1},
		{"bare attribute", "input[name]", 1},
		{"selector list", "button.start-button, button.play-button", 1},
		{"descendant chain", ".speed-control input[type=checkbox]", 1},
		{"no match", ".does-not-exist", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes, err := snap.Find(ctx, nil, tt.selector)
			require.NoError(t, err)
			assert.Len(t, nodes, tt.want)
		})
	}
}

func TestSnapshotRejectsUnsupportedCombinator(t *testing.T) {
	snap := parseFixture(t)
	_, err := snap.Find(context.Background(), nil, "div > label")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported combinator")
}

func TestSnapshotNodeReads(t *testing.T) {
	snap := parseFixture(t)
	ctx := context.Background()

	explanations, err := snap.Find(ctx, nil, ".zb-explanation")
	require.NoError(t, err)
	require.Len(t, explanations, 1)
	exp := explanations[0]

	text, err := exp.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Correct, 4 is right.", text)

	visible, err := exp.Visible(ctx)
	require.NoError(t, err)
	assert.False(t, visible, "inline display:none should read as invisible")

	chevrons, err := snap.Find(ctx, nil, ".zb-chevron")
	require.NoError(t, err)
	title, ok, err := chevrons[0].Attr(ctx, "title")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Complete", title)
}

func TestSnapshotKeysStableAcrossFinds(t *testing.T) {
	snap := parseFixture(t)
	ctx := context.Background()

	first, err := snap.Find(ctx, nil, "label.zb-radio-button")
	require.NoError(t, err)
	second, err := snap.Find(ctx, nil, "label.zb-radio-button")
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Len(t, second, 2)

	assert.Equal(t, first[0].Key(), second[0].Key())
	assert.Equal(t, first[1].Key(), second[1].Key())
	assert.NotEqual(t, first[0].Key(), first[1].Key())
}

func TestSnapshotIsReadOnly(t *testing.T) {
	snap := parseFixture(t)
	ctx := context.Background()

	nodes, err := snap.Find(ctx, nil, "button.start-button")
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	assert.ErrorIs(t, snap.Activate(ctx, nodes[0]), ErrReadOnly)
	assert.ErrorIs(t, snap.CommitText(ctx, nodes[0], "x"), ErrReadOnly)
	assert.ErrorIs(t, snap.Transfer(ctx, nodes[0], nodes[0]), ErrReadOnly)
}
