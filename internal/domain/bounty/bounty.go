package bounty

type Bounty struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Category        string  `json:"category"`
	RewardAmount    float64 `json:"rewardAmount"`
	RewardToken     string  `json:"rewardToken"`
	Deadline        string  `json:"deadline"`
	Status          string  `json:"status"`
	CreatedBy       string  `json:"createdBy"`
	CreatorEmail    string  `json:"creatorEmail,omitempty"`
	CreatorUsername string  `json:"creatorUsername,omitempty"`
	CreatedAt       string  `json:"createdAt"`
	UpdatedAt       string  `json:"updatedAt"`
}

// Filters are passed straight through to the upstream list endpoint.
// Pointers keep "not set" distinct from an empty value.
type ListFilter struct {
	Status    *string
	Category  *string
	CreatedBy *string
}

type CreateBountyRequest struct {
	Title        string  `json:"title" binding:"required,min=3,max=120"`
	Description  string  `json:"description" binding:"required,min=10,max=2000"`
	Category     string  `json:"category" binding:"required,oneof=dev content design research"`
	RewardAmount float64 `json:"rewardAmount" binding:"required,gt=0"`
	RewardToken  string  `json:"rewardToken" binding:"required,min=1,max=20"`
	Deadline     string  `json:"deadline" binding:"required"`
	Status       string  `json:"status" binding:"omitempty,oneof=open in_review closed in-progress"`
}

// Partial update; only provided fields are forwarded upstream.
type UpdateBountyRequest struct {
	Title        *string  `json:"title" binding:"omitempty,min=3,max=120"`
	Description  *string  `json:"description" binding:"omitempty,min=10,max=2000"`
	Category     *string  `json:"category" binding:"omitempty,oneof=dev content design research"`
	RewardAmount *float64 `json:"rewardAmount" binding:"omitempty,gt=0"`
	RewardToken  *string  `json:"rewardToken" binding:"omitempty,min=1,max=20"`
	Deadline     *string  `json:"deadline" binding:"omitempty"`
	Status       *string  `json:"status" binding:"omitempty,oneof=open in_review closed in-progress"`
}
