package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tinbox/internal/model"
)

func TestDecodeRow(t *testing.T) {
	t.Run("full row with localized status", func(t *testing.T) {
		d, ok := DecodeRow([]string{"7", "Alpha", "X", "نعم", "1,000", "near door"})
		assert.True(t, ok)
		assert.Equal(t, model.Donation{
			ID: 7, StoreName: "Alpha", Location: "X",
			Collected: model.CollectedYes, Amount: 1000, Notes: "near door",
		}, d)
	})

	t.Run("short row is padded", func(t *testing.T) {
		d, ok := DecodeRow([]string{"3", "beta"})
		assert.True(t, ok)
		assert.Equal(t, "", d.Location)
		assert.Equal(t, model.CollectedNo, d.Collected)
		assert.Equal(t, 0.0, d.Amount)
	})

	t.Run("bad amount reads as zero", func(t *testing.T) {
		d, ok := DecodeRow([]string{"4", "x", "y", "no", "lots"})
		assert.True(t, ok)
		assert.Equal(t, 0.0, d.Amount)
	})

	t.Run("unrepresentable amount reads as zero", func(t *testing.T) {
		for _, amount := range []string{"Inf", "-Inf", "NaN", "1e309"} {
			d, ok := DecodeRow([]string{"5", "x", "y", "no", amount})
			assert.True(t, ok)
			assert.Equal(t, 0.0, d.Amount, amount)
		}
	})

	t.Run("notes are kept as written", func(t *testing.T) {
		d, ok := DecodeRow([]string{"6", " Alpha ", "X", "no", "0", "  back shelf "})
		assert.True(t, ok)
		assert.Equal(t, "Alpha", d.StoreName)
		assert.Equal(t, "  back shelf ", d.Notes)
	})

	t.Run("rows without id are skipped", func(t *testing.T) {
		_, ok := DecodeRow([]string{"", "Alpha"})
		assert.False(t, ok)
		_, ok = DecodeRow(nil)
		assert.False(t, ok)
	})
}

func TestEncodeRow_UsesLabels(t *testing.T) {
	row := EncodeRow(model.Donation{ID: 2, StoreName: "A", Location: "B", Collected: model.CollectedYes, Amount: 5})
	assert.Equal(t, []interface{}{int64(2), "A", "B", model.CollectedYesLabel, 5.0, ""}, row)
}

func TestDecodeRows_SortsByID(t *testing.T) {
	rows := [][]string{
		{"id"},
		{"5", "e"},
		{},
		{"2", "b"},
	}
	got := decodeRows(rows)
	assert.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].donation.ID)
	assert.Equal(t, 4, got[0].row)
	assert.Equal(t, int64(5), got[1].donation.ID)
	assert.Equal(t, 2, got[1].row)
}

func TestCellString(t *testing.T) {
	assert.Equal(t, "1000000", cellString(1e6))
	assert.Equal(t, "12.5", cellString(12.5))
	assert.Equal(t, "", cellString(nil))
	assert.Equal(t, "abc", cellString("abc"))
}
