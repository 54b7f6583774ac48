package resume

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

// Status is the lifecycle state of a resume document. The transition between
// draft and completed is a plain user-driven field change in both directions;
// completed documents stay editable so users can fix them.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusCompleted Status = "completed"
)

// ParseStatus validates a raw status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusDraft, StatusCompleted:
		return Status(s), nil
	default:
		return "", fmt.Errorf("invalid resume status %q", s)
	}
}

// SkillLevel is the self-assessed proficiency attached to a skill entry.
type SkillLevel string

const (
	LevelBeginner     SkillLevel = "Beginner"
	LevelIntermediate SkillLevel = "Intermediate"
	LevelAdvanced     SkillLevel = "Advanced"
	LevelExpert       SkillLevel = "Expert"
)

// ParseSkillLevel validates a raw skill level string.
func ParseSkillLevel(s string) (SkillLevel, error) {
	switch SkillLevel(s) {
	case LevelBeginner, LevelIntermediate, LevelAdvanced, LevelExpert:
		return SkillLevel(s), nil
	default:
		return "", fmt.Errorf("invalid skill level %q", s)
	}
}

// Content is the structured payload stored in the resume Content(JSONB)
// column. Slice order within each section is user-controlled display order.
type Content struct {
	Personal   Personal     `json:"personal"`
	Experience []Experience `json:"experience"`
	Education  []Education  `json:"education"`
	Skills     []Skill      `json:"skills"`
	Projects   []Project    `json:"projects"`
}

// Personal holds the free-text header fields.
type Personal struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	Website  string `json:"website"`
	Summary  string `json:"summary"`
}

// Experience is one work history entry. EndDate may hold the literal
// "Present" for an ongoing position.
type Experience struct {
	Company     string `json:"company"`
	Title       string `json:"title"`
	Location    string `json:"location"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Description string `json:"description"`
}

// Education is one education history entry.
type Education struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	Location    string `json:"location"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Description string `json:"description"`
}

// Skill is a named skill with a proficiency level.
type Skill struct {
	Name  string     `json:"name"`
	Level SkillLevel `json:"level"`
}

// Project is one portfolio entry.
type Project struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Technologies string `json:"technologies"`
}

// DefaultContent returns the payload a freshly created document starts with:
// every text field empty except the account email, every section present,
// every list empty.
func DefaultContent(email string) Content {
	return Content{
		Personal:   Personal{Email: email},
		Experience: []Experience{},
		Education:  []Education{},
		Skills:     []Skill{},
		Projects:   []Project{},
	}
}

// Validate checks the closed enumerations inside the payload. Free-text
// fields are not constrained; there is no required-field gate on completion.
func (c Content) Validate() error {
	for i, s := range c.Skills {
		if _, err := ParseSkillLevel(string(s.Level)); err != nil {
			return fmt.Errorf("skills[%d]: %w", i, err)
		}
	}
	return nil
}

// Normalize replaces nil section slices with empty ones so serialized
// documents always carry all five sections.
func (c *Content) Normalize() {
	if c.Experience == nil {
		c.Experience = []Experience{}
	}
	if c.Education == nil {
		c.Education = []Education{}
	}
	if c.Skills == nil {
		c.Skills = []Skill{}
	}
	if c.Projects == nil {
		c.Projects = []Project{}
	}
}

// MarshalJSONB serializes the content for the JSONB column.
func (c Content) MarshalJSONB() (datatypes.JSON, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal resume content: %w", err)
	}
	return datatypes.JSON(data), nil
}

// UnmarshalJSONB decodes a JSONB column value into a normalized Content.
func UnmarshalJSONB(raw datatypes.JSON) (Content, error) {
	var c Content
	if len(raw) == 0 {
		c.Normalize()
		return c, nil
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return Content{}, fmt.Errorf("unmarshal resume content: %w", err)
	}
	c.Normalize()
	return c, nil
}
