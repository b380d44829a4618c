package series

type ListSeriesQuery struct {
	Limit  int `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=100"`
	Offset int `query:"offset" json:"offset,omitempty" validate:"min=0"`
}

type CreateSeriesPayload struct {
	Name        string `json:"name" validate:"required,min=1,max=40" mod:"trim"`
	Description string `json:"description,omitempty" validate:"max=5000"`
}

type UpdateSeriesPayload struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=40" mod:"trim"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=5000"`
}
