package tags

type ListTagsQuery struct {
	Limit  int `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=200"`
	Offset int `query:"offset" json:"offset,omitempty" validate:"min=0"`
}

type CreateTagPayload struct {
	Name string `json:"name" validate:"required,min=1,max=300" mod:"trim"`
}

type UpdateTagPayload struct {
	Name *string `json:"name,omitempty" validate:"omitempty,min=1,max=300" mod:"trim"`
}
