package authors

type ListAuthorsQuery struct {
	Limit  int `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=100"`
	Offset int `query:"offset" json:"offset,omitempty" validate:"min=0"`
}

type CreateAuthorPayload struct {
	Name string `json:"name" validate:"required,min=1,max=300" mod:"trim"`
	Bio  string `json:"bio,omitempty" validate:"max=5000"`
}

type UpdateAuthorPayload struct {
	Name *string `json:"name,omitempty" validate:"omitempty,min=1,max=300" mod:"trim"`
	Bio  *string `json:"bio,omitempty" validate:"omitempty,max=5000"`
}
