package labels

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jobtrail/jobtrail/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// labelMailbox fakes the label surface of a mailbox. Colors listed in
// rejectColors fail creation, modeling provider palette restrictions.
type labelMailbox struct {
	labels       []core.LabelRef
	rejectColors map[string]bool
	nextID       int

	created  []string
	patched  map[string]map[string]string
	modified [][]string
}

func newLabelMailbox(existing ...core.LabelRef) *labelMailbox {
	return &labelMailbox{
		labels:  existing,
		patched: make(map[string]map[string]string),
	}
}

func (m *labelMailbox) ListMessages(ctx context.Context, query string, max int) ([]string, error) {
	return nil, nil
}

func (m *labelMailbox) GetMessage(ctx context.Context, id string) (*core.NormalizedEmail, error) {
	return nil, errors.New("not implemented")
}

func (m *labelMailbox) ListLabels(ctx context.Context) ([]core.LabelRef, error) {
	return m.labels, nil
}

func (m *labelMailbox) CreateLabel(ctx context.Context, cfg core.LabelConfig) (*core.LabelRef, error) {
	m.created = append(m.created, cfg.Color)
	if m.rejectColors[cfg.Color] {
		return nil, errors.New("invalid label color")
	}
	m.nextID++
	ref := core.LabelRef{ID: fmt.Sprintf("L%d", m.nextID), Name: cfg.Name}
	m.labels = append(m.labels, ref)
	return &ref, nil
}

func (m *labelMailbox) PatchLabel(ctx context.Context, id string, fields map[string]string) error {
	m.patched[id] = fields
	for i, ref := range m.labels {
		if ref.ID == id {
			m.labels[i].Name = fields["name"]
		}
	}
	return nil
}

func (m *labelMailbox) ModifyThreadLabels(ctx context.Context, threadID string, add, remove []string) error {
	m.modified = append(m.modified, add)
	return nil
}

func (m *labelMailbox) GetThreadLabels(ctx context.Context, threadID string) ([]string, error) {
	return nil, nil
}

func TestApplyResolvesExistingLabel(t *testing.T) {
	mailbox := newLabelMailbox(core.LabelRef{ID: "L9", Name: "Jobs/Interview"})
	a := NewApplicator(zap.NewNop())

	id, err := a.Apply(context.Background(), mailbox, "t1", "Jobs/Interview")
	require.NoError(t, err)
	assert.Equal(t, "L9", id)
	assert.Empty(t, mailbox.created)

	// The label and the inbox marker are both attached
	require.Len(t, mailbox.modified, 1)
	assert.Equal(t, []string{"L9", "INBOX"}, mailbox.modified[0])
}

func TestApplyCreatesMissingLabel(t *testing.T) {
	mailbox := newLabelMailbox()
	a := NewApplicator(zap.NewNop())

	id, err := a.Apply(context.Background(), mailbox, "t1", "Jobs/Applied")
	require.NoError(t, err)
	assert.Equal(t, "L1", id)
	assert.Equal(t, []string{"#16a765"}, mailbox.created)
}

func TestApplyRenamesLegacyLabel(t *testing.T) {
	mailbox := newLabelMailbox(core.LabelRef{ID: "L3", Name: "Job Applications"})
	a := NewApplicator(zap.NewNop())

	id, err := a.Apply(context.Background(), mailbox, "t1", "Jobs/Applied")
	require.NoError(t, err)
	assert.Equal(t, "L3", id)
	assert.Empty(t, mailbox.created)
	assert.Equal(t, map[string]string{"name": "Jobs/Applied"}, mailbox.patched["L3"])
}

func TestApplyFallsBackThroughColors(t *testing.T) {
	mailbox := newLabelMailbox()
	mailbox.rejectColors = map[string]bool{"#16a765": true, "#43d692": true}
	a := NewApplicator(zap.NewNop())

	id, err := a.Apply(context.Background(), mailbox, "t1", "Jobs/Applied")
	require.NoError(t, err)
	assert.Equal(t, "L1", id)
	assert.Equal(t, []string{"#16a765", "#43d692", "#2da2bb"}, mailbox.created)
}

func TestApplyVisibilityOnlyLastResort(t *testing.T) {
	mailbox := newLabelMailbox()
	mailbox.rejectColors = map[string]bool{
		"#16a765": true, "#43d692": true, "#2da2bb": true,
	}
	a := NewApplicator(zap.NewNop())

	_, err := a.Apply(context.Background(), mailbox, "t1", "Jobs/Applied")
	require.NoError(t, err)

	// Every configured color failed; the empty color succeeded
	assert.Equal(t, []string{"#16a765", "#43d692", "#2da2bb", ""}, mailbox.created)
}

func TestApplyIsIdempotent(t *testing.T) {
	mailbox := newLabelMailbox()
	a := NewApplicator(zap.NewNop())
	ctx := context.Background()

	first, err := a.Apply(ctx, mailbox, "t1", "Jobs/Offer")
	require.NoError(t, err)

	second, err := a.Apply(ctx, mailbox, "t1", "Jobs/Offer")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, mailbox.created, 1)
}

func TestApplyCustomLabelName(t *testing.T) {
	mailbox := newLabelMailbox()
	a := NewApplicator(zap.NewNop())

	id, err := a.Apply(context.Background(), mailbox, "t1", "Clients")
	require.NoError(t, err)
	assert.Equal(t, "L1", id)
	assert.Equal(t, []string{""}, mailbox.created)
}

func TestPresetName(t *testing.T) {
	assert.Equal(t, "Jobs/Applied", PresetName(core.CategoryApplication))
	assert.Equal(t, "Jobs/Rejected", PresetName(core.CategoryRejection))
	assert.Equal(t, "Clients", PresetName("Clients"))
}

func TestPresetLookupsAgreeOnCustomLabels(t *testing.T) {
	// Custom labels get the same visibility-only fallback whichever
	// lookup path produced the config.
	byCategory := PresetFor("Clients")
	byName := presetByName("Clients")
	assert.Equal(t, byCategory, byName)
	assert.Equal(t, []string{""}, byCategory.ColorFallbacks)

	assert.Equal(t, presets[core.CategoryOffer], presetByName("Jobs/Offer"))
}
