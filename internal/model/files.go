package model

// File is one scan or photo queued for upload.
type File struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"-"`
}

// DefaultCategories is the fixed bucket set operators sort scans into.
var DefaultCategories = []string{"vendedor", "comprador", "otros"}

// CategorizedFileSet holds the files the operator has placed into named
// buckets for the current session. Category iteration order is the order
// categories were first added.
type CategorizedFileSet struct {
	order []string
	files map[string][]File
}

// NewCategorizedFileSet creates an empty file set.
func NewCategorizedFileSet() *CategorizedFileSet {
	return &CategorizedFileSet{files: make(map[string][]File)}
}

// Add appends a file to the given category bucket.
func (s *CategorizedFileSet) Add(category string, f File) {
	if _, ok := s.files[category]; !ok {
		s.order = append(s.order, category)
	}
	s.files[category] = append(s.files[category], f)
}

// Remove deletes the file at index i from the category bucket. Out-of-range
// indices are ignored.
func (s *CategorizedFileSet) Remove(category string, i int) {
	fs := s.files[category]
	if i < 0 || i >= len(fs) {
		return
	}
	s.files[category] = append(fs[:i:i], fs[i+1:]...)
}

// Files returns the ordered files in a category.
func (s *CategorizedFileSet) Files(category string) []File {
	return s.files[category]
}

// Categories returns category names in first-added order.
func (s *CategorizedFileSet) Categories() []string {
	return s.order
}

// Total returns the number of files across all categories.
func (s *CategorizedFileSet) Total() int {
	n := 0
	for _, fs := range s.files {
		n += len(fs)
	}
	return n
}

// Clear removes every file and category.
func (s *CategorizedFileSet) Clear() {
	s.order = nil
	s.files = make(map[string][]File)
}
