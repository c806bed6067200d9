package models

// QuestionType identifies which editor widget, config shape and renderer
// apply to a question. The set is closed but extensible: unknown tags are
// carried through and rendered as a neutral placeholder downstream.
type QuestionType string

const (
	ShortText      QuestionType = "short-text"
	LongText       QuestionType = "long-text"
	MultipleChoice QuestionType = "multiple-choice"
	Checkboxes     QuestionType = "checkboxes"
	Dropdown       QuestionType = "dropdown"
	MultiSelect    QuestionType = "multi-select"
	Number         QuestionType = "number"
	Link           QuestionType = "link"
	FileUpload     QuestionType = "file-upload"
	Date           QuestionType = "date"
	Time           QuestionType = "time"
	LinearScale    QuestionType = "linear-scale"
	Rating         QuestionType = "rating"
	Matrix         QuestionType = "matrix"
	Ranking        QuestionType = "ranking"
	EmbedImage     QuestionType = "embed-image"
)

// ChoiceFamily reports whether questions of this type carry an Options list.
func (t QuestionType) ChoiceFamily() bool {
	switch t {
	case MultipleChoice, Checkboxes, Dropdown, MultiSelect:
		return true
	}
	return false
}

// IsKnown reports whether the tag is one this build understands. Unknown
// tags are tolerated everywhere; this only drives placeholder rendering.
func (t QuestionType) IsKnown() bool {
	switch t {
	case ShortText, LongText, MultipleChoice, Checkboxes, Dropdown, MultiSelect,
		Number, Link, FileUpload, Date, Time, LinearScale, Rating, Matrix,
		Ranking, EmbedImage:
		return true
	}
	return false
}

// Question is one block in a survey or screening form. ID and Type are
// immutable after creation; changing a question's type is modeled as
// delete + insert, never in-place mutation.
type Question struct {
	ID       string         `json:"id"`
	Type     QuestionType   `json:"type"`
	Title    string         `json:"title"`
	Required bool           `json:"required"`
	Options  []string       `json:"options,omitempty"`
	Config   QuestionConfig `json:"config"`
	Logic    []LogicRule    `json:"logic,omitempty"`
}

// QuestionConfig is the tagged-union configuration record. Exactly the
// variant matching the question's type is populated; the rest stay nil and
// marshal away. Renderers ignore variants irrelevant to the current type.
type QuestionConfig struct {
	Number     *NumberConfig     `json:"number,omitempty"`
	Scale      *ScaleConfig      `json:"scale,omitempty"`
	Rating     *RatingConfig     `json:"rating,omitempty"`
	Matrix     *MatrixConfig     `json:"matrix,omitempty"`
	Ranking    *RankingConfig    `json:"ranking,omitempty"`
	FileUpload *FileUploadConfig `json:"fileUpload,omitempty"`
	Image      *ImageConfig      `json:"image,omitempty"`
}

// IsZero reports whether no variant is populated.
func (c QuestionConfig) IsZero() bool {
	return c.Number == nil && c.Scale == nil && c.Rating == nil &&
		c.Matrix == nil && c.Ranking == nil && c.FileUpload == nil && c.Image == nil
}

type NumberConfig struct {
	Min           *float64 `json:"min,omitempty"`
	Max           *float64 `json:"max,omitempty"`
	AllowDecimals bool     `json:"allowDecimals"`
}

type ScaleConfig struct {
	RangeMin int    `json:"rangeMin"`
	RangeMax int    `json:"rangeMax"`
	MinLabel string `json:"minLabel"`
	MaxLabel string `json:"maxLabel"`
}

type RatingConfig struct {
	Icon  string `json:"icon"`
	Count int    `json:"count"`
}

type MatrixConfig struct {
	Rows    []string `json:"rows"`
	Columns []string `json:"columns"`
}

type RankingConfig struct {
	Items []string `json:"items"`
}

type FileUploadConfig struct {
	AllowedFileTypes []string `json:"allowedFileTypes"`
	MaxFileSizeMB    int      `json:"maxFileSize"`
}

type ImageConfig struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

// Clone returns a deep copy. Questions never alias option/config slices;
// duplication and snapshotting rely on this.
func (q Question) Clone() Question {
	out := q
	if q.Options != nil {
		out.Options = append([]string(nil), q.Options...)
	}
	if q.Logic != nil {
		out.Logic = append([]LogicRule(nil), q.Logic...)
	}
	out.Config = q.Config.clone()
	return out
}

func (c QuestionConfig) clone() QuestionConfig {
	out := c
	if c.Number != nil {
		n := *c.Number
		if c.Number.Min != nil {
			v := *c.Number.Min
			n.Min = &v
		}
		if c.Number.Max != nil {
			v := *c.Number.Max
			n.Max = &v
		}
		out.Number = &n
	}
	if c.Scale != nil {
		s := *c.Scale
		out.Scale = &s
	}
	if c.Rating != nil {
		r := *c.Rating
		out.Rating = &r
	}
	if c.Matrix != nil {
		m := MatrixConfig{
			Rows:    append([]string(nil), c.Matrix.Rows...),
			Columns: append([]string(nil), c.Matrix.Columns...),
		}
		out.Matrix = &m
	}
	if c.Ranking != nil {
		r := RankingConfig{Items: append([]string(nil), c.Ranking.Items...)}
		out.Ranking = &r
	}
	if c.FileUpload != nil {
		f := FileUploadConfig{
			AllowedFileTypes: append([]string(nil), c.FileUpload.AllowedFileTypes...),
			MaxFileSizeMB:    c.FileUpload.MaxFileSizeMB,
		}
		out.FileUpload = &f
	}
	if c.Image != nil {
		i := *c.Image
		out.Image = &i
	}
	return out
}

// QuestionPatch is a shallow partial update. Nil fields are left untouched;
// non-nil fields replace the question's current value wholesale.
type QuestionPatch struct {
	Title    *string         `json:"title,omitempty"`
	Required *bool           `json:"required,omitempty"`
	Options  *[]string       `json:"options,omitempty"`
	Config   *QuestionConfig `json:"config,omitempty"`
	Logic    *[]LogicRule    `json:"logic,omitempty"`
}

// Apply merges the patch into q.
func (p QuestionPatch) Apply(q *Question) {
	if p.Title != nil {
		q.Title = *p.Title
	}
	if p.Required != nil {
		q.Required = *p.Required
	}
	if p.Options != nil {
		q.Options = append([]string(nil), (*p.Options)...)
	}
	if p.Config != nil {
		q.Config = p.Config.clone()
	}
	if p.Logic != nil {
		q.Logic = append([]LogicRule(nil), (*p.Logic)...)
	}
}
