package dto

// RegisterDTO is the multipart form of POST /users/register. The avatar and
// coverImage files are read separately.
type RegisterDTO struct {
	Fullname string `form:"fullname" binding:"required"`
	Email    string `form:"email" binding:"required,email"`
	Username string `form:"username" binding:"required,min=3,max=30"`
	Password string `form:"password" binding:"required,min=8"`
}

// LoginDTO needs either username or email.
type LoginDTO struct {
	Username string `json:"username" binding:"required_without=Email"`
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refreshToken"`
}

type UpdateAccountDTO struct {
	Fullname string `json:"fullname" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
}
