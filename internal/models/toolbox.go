package models

// ToolboxTemplate is one entry in the static palette of draggable question
// type templates. The builder treats this as configuration data: it only ever
// reads Type to seed question creation.
type ToolboxTemplate struct {
	Type        QuestionType `json:"type"`
	Label       string       `json:"label"`
	Icon        string       `json:"icon"`
	Description string       `json:"description"`
}

// ToolboxCategory groups templates for display.
type ToolboxCategory struct {
	Name      string            `json:"name"`
	Templates []ToolboxTemplate `json:"templates"`
}

// ToolboxRegistry is the read-only template palette shipped with the builder.
var ToolboxRegistry = []ToolboxCategory{
	{
		Name: "Text",
		Templates: []ToolboxTemplate{
			{Type: ShortText, Label: "Short Text", Icon: "text-short", Description: "Single line answer"},
			{Type: LongText, Label: "Long Text", Icon: "text-long", Description: "Multi line answer"},
			{Type: Link, Label: "Link", Icon: "link", Description: "URL answer"},
		},
	},
	{
		Name: "Choice",
		Templates: []ToolboxTemplate{
			{Type: MultipleChoice, Label: "Multiple Choice", Icon: "radio", Description: "Pick one option"},
			{Type: Checkboxes, Label: "Checkboxes", Icon: "checkbox", Description: "Pick any options"},
			{Type: Dropdown, Label: "Dropdown", Icon: "dropdown", Description: "Pick one from a list"},
			{Type: MultiSelect, Label: "Multi Select", Icon: "multi-select", Description: "Pick several from a list"},
		},
	},
	{
		Name: "Measure",
		Templates: []ToolboxTemplate{
			{Type: Number, Label: "Number", Icon: "number", Description: "Numeric answer"},
			{Type: LinearScale, Label: "Linear Scale", Icon: "scale", Description: "Rate on a scale"},
			{Type: Rating, Label: "Rating", Icon: "star", Description: "Star or icon rating"},
			{Type: Matrix, Label: "Matrix", Icon: "matrix", Description: "Grid of rows and columns"},
			{Type: Ranking, Label: "Ranking", Icon: "ranking", Description: "Order items by preference"},
		},
	},
	{
		Name: "Media & Time",
		Templates: []ToolboxTemplate{
			{Type: FileUpload, Label: "File Upload", Icon: "upload", Description: "Collect a file"},
			{Type: EmbedImage, Label: "Image", Icon: "image", Description: "Embed an image"},
			{Type: Date, Label: "Date", Icon: "calendar", Description: "Pick a date"},
			{Type: Time, Label: "Time", Icon: "clock", Description: "Pick a time"},
		},
	},
}
