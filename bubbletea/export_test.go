package bubbletea

// RenderContent exports renderContent for testing.
func RenderContent(m Model) string {
	return m.renderContent()
}

// BlockFocus exports the focused block index for testing.
func BlockFocus(m Model) int {
	return m.blockFocus
}

// ExcerptPreview exports excerptPreview for testing.
func ExcerptPreview(s string, limit int) string {
	return excerptPreview(s, limit)
}
