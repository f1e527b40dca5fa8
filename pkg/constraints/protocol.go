package constraints

// REST paths of the class-enrollment API.
const (
	PathLogin          = "/api/auth/login/"
	PathRefresh        = "/api/auth/refresh/"
	PathMe             = "/api/auth/me/"
	PathAvatar         = "/api/auth/me/avatar/"
	PathChangePassword = "/api/auth/change-password/"
	PathClasses        = "/api/classes/"
	PathEnrollments    = "/api/enrollments/"
	PathUsers          = "/api/users/"
	PathInstructors    = "/api/instructors/"
	PathMediaAvatars   = "/media/avatars/"
)

// Prefixes that identify the token endpoints regardless of trailing slash or
// query string. Requests matching these never enter the refresh cycle.
const (
	LoginPrefix   = "/api/auth/login"
	RefreshPrefix = "/api/auth/refresh"
)

// Group names that drive authorization.
const (
	GroupAdmin      = "admin"
	GroupInstructor = "instructor"
)

// Storage keys of the persisted credentials.
const (
	KeyAccessToken  = "token"
	KeyRefreshToken = "refresh"
)

// Views the session layer can send a user to.
const (
	ViewLogin = "/login"
	ViewHome  = "/"
)

const (
	ContentTypeJSON      = "application/json; charset=utf-8"
	ContentTypeMultipart = "multipart/form-data"
)
