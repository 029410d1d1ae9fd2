package store

// Book is one ingested book.
type Book struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Author     string `json:"author,omitempty"`
	SourcePath string `json:"source_path,omitempty"`
	Chapters   int    `json:"chapters,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// Chapter is one chapter of a book. Index is 0-based reading order.
type Chapter struct {
	ID        int64  `json:"id"`
	BookID    int64  `json:"book_id"`
	Index     int    `json:"index"`
	Title     string `json:"title,omitempty"`
	Content   string `json:"content,omitempty"`
	CharCount int    `json:"char_count"`
}

// CharacterRecord is the stored form of one character: traits, dialogs, and
// voice profile serialized as JSON columns, merged in Go before updates.
type CharacterRecord struct {
	ID           int64  `json:"id"`
	BookID       int64  `json:"book_id"`
	Name         string `json:"name"`
	TraitsJSON   string `json:"traits"`
	DialogsJSON  string `json:"dialogs"`
	VoiceProfile string `json:"voice_profile,omitempty"`
	SpeakerID    int    `json:"speaker_id,omitempty"`
	UpdatedAt    string `json:"updated_at"`
}

// PlotPointRecord identity within a book is (ChapterIndex, Title).
type PlotPointRecord struct {
	ID           int64  `json:"id"`
	BookID       int64  `json:"book_id"`
	ChapterIndex int    `json:"chapter_index"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Significance string `json:"significance"`
}

// ForeshadowRecord identity within a book is (SourceChapter, TargetChapter, Hint).
type ForeshadowRecord struct {
	ID            int64  `json:"id"`
	BookID        int64  `json:"book_id"`
	SourceChapter int    `json:"source_chapter"`
	TargetChapter int    `json:"target_chapter"`
	Hint          string `json:"hint"`
	Payoff        string `json:"payoff,omitempty"`
}

// ThemeRecord identity within a book is Name.
type ThemeRecord struct {
	ID           int64  `json:"id"`
	BookID       int64  `json:"book_id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	ChaptersJSON string `json:"chapters"`
}

// LLMCallRecord is one recorded inference call.
type LLMCallRecord struct {
	ID               string `json:"id"`
	BookID           int64  `json:"book_id"`
	ChapterID        int64  `json:"chapter_id"`
	PromptKey        string `json:"prompt_key"`
	Engine           string `json:"engine,omitempty"`
	Model            string `json:"model,omitempty"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	DurationMS       int64  `json:"duration_ms"`
	Success          bool   `json:"success"`
	Error            string `json:"error,omitempty"`
	CreatedAt        string `json:"created_at"`
}
