package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/ytsort/internal/models"
)

var (
	_ list.Item = errorItem{}
)

// errorItem wraps [models.SyncError] to implement [list.Item].
type errorItem struct {
	err models.SyncError
}

func (i errorItem) FilterValue() string { return i.err.Message }
func (i errorItem) Title() string       { return i.err.Message }
func (i errorItem) Description() string {
	desc := fmt.Sprintf("%s • %s", i.err.Stage, i.err.EntityType)
	if i.err.EntityID != "" {
		desc = fmt.Sprintf("%s %s", desc, i.err.EntityID)
	}
	return fmt.Sprintf("%s • %s", desc, i.err.Timestamp.Local().Format("Jan 2 15:04:05"))
}

// errorItems lists the newest errors first.
func errorItems(errs []models.SyncError) []list.Item {
	items := make([]list.Item, 0, len(errs))
	for i := len(errs) - 1; i >= 0; i-- {
		items = append(items, errorItem{err: errs[i]})
	}
	return items
}
