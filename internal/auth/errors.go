package auth

import "errors"

const (
	MsgMissingFields      = "Por favor completa todos los campos."
	MsgMissingCredentials = "Por favor ingresa usuario y contraseña."
	MsgEmailTaken         = "Error al registrarse: el correo ya está registrado."
	MsgInvalidCredentials = "Error al iniciar sesión: usuario o contraseña incorrectos."
	MsgNoSession          = "Sesión no válida o expirada."
)

type ErrorKind int

const (
	KindInvalid ErrorKind = iota
	KindConflict
	KindUnauthorized
)

// AuthError is a rejection whose Message is shown to the user as is.
type AuthError struct {
	Kind    ErrorKind
	Message string
}

func (e *AuthError) Error() string { return e.Message }

var (
	ErrNotFound  = errors.New("auth: not found")
	ErrDuplicate = errors.New("auth: duplicate")
)

func reject(kind ErrorKind, msg string) error {
	return &AuthError{Kind: kind, Message: msg}
}
