package generation

import "time"

type SubMaterial struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type Module struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	SubMaterials []SubMaterial `json:"sub_materials"`
}

// Chapter is handed to the persistence sink exactly once and not touched
// afterwards.
type Chapter struct {
	ID          string   `json:"id"`
	Number      int      `json:"number"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Modules     []Module `json:"modules"`
}

type Course struct {
	ID          string    `json:"id,omitempty"`
	OwnerID     string    `json:"owner_id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Topics      []string  `json:"topics"`
	Chapters    []Chapter `json:"chapters"`
}

// ChapterPlanItem is one planned chapter. Numbers are 1-based and dense.
type ChapterPlanItem struct {
	Number      int      `json:"number"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Topics      []string `json:"topics,omitempty"`
}

type ModuleDescriptor struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type SubMaterialDescriptor struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type PersonalizationAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Question struct {
	ID               string   `json:"id"`
	Question         string   `json:"question"`
	SuggestedAnswers []string `json:"suggested_answers"`
}

// Progress is observational only; Current never decreases within a run.
type Progress struct {
	Phase   string `json:"phase"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
}

type ProgressFunc func(Progress)

type Request struct {
	CourseID string
	OwnerID  string
	Topics   []string
	Answers  []PersonalizationAnswer
	// Plan, when non-empty, is used as-is and planning is skipped.
	Plan []ChapterPlanItem
}

type Options struct {
	ContentDelay   time.Duration
	ModuleStagger  time.Duration
	MinModules     int
	MaxModules     int
	ChapterCount   int
	ApplyRevisions bool
}

func DefaultOptions() Options {
	return Options{
		ContentDelay:   10 * time.Second,
		ModuleStagger:  2 * time.Second,
		MinModules:     2,
		MaxModules:     3,
		ChapterCount:   6,
		ApplyRevisions: true,
	}
}
