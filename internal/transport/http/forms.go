package httptransport

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/form/v4"
	"github.com/go-playground/validator/v10"
)

const maxUploadBytes = 8 << 20

// Validation messages shown next to form fields.
const (
	msgRequired         = "Este campo es obligatorio."
	msgInvalidEmail     = "Introduzca una dirección de correo electrónico válida."
	msgInvalidChoice    = "Seleccione una opción válida."
	msgPasswordMismatch = "Las contraseñas no coinciden."
	msgFixErrors        = "Corrige los errores antes de continuar."
	msgBadCredentials   = "Correo o contraseña incorrectos."
	msgInvalidLogin     = "Correo o contraseña inválidos."
	msgTooManyAttempts  = "Demasiados intentos fallidos. Intenta nuevamente en unos minutos."
)

type RegisterForm struct {
	FirstName       string `form:"first_name" validate:"max=150"`
	LastName        string `form:"last_name" validate:"max=150"`
	Email           string `form:"email" validate:"required,email,max=254"`
	Password        string `form:"password" validate:"required,max=128"`
	ConfirmPassword string `form:"confirmar_password" validate:"required,max=128"`
}

type LoginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
	Next     string `form:"next"`
}

// ProfileForm backs both profile completion and profile update.
type ProfileForm struct {
	FirstName  string `form:"first_name" validate:"required,max=150"`
	LastName   string `form:"last_name" validate:"required,max=150"`
	Email      string `form:"email" validate:"required,email,max=254"`
	NationalID string `form:"dni" validate:"required,max=20"`
	Address    string `form:"direccion" validate:"required,max=255"`
	Phone      string `form:"telefono" validate:"required,max=20"`
}

type VehicleForm struct {
	Plate string `form:"placa" validate:"required,max=10"`
	Make  string `form:"marca" validate:"required,max=50"`
	Model string `form:"modelo" validate:"required,max=50"`
	Color string `form:"color" validate:"required,max=30"`
	Image string `form:"imagen"`
}

type StaffForm struct {
	FirstName string `form:"first_name" validate:"max=150"`
	LastName  string `form:"last_name" validate:"max=150"`
	Email     string `form:"email" validate:"required,email,max=254"`
	Role      string `form:"rol" validate:"required,oneof=ADMINISTRADOR VIGILANTE RESIDENTE"`
	Password  string `form:"password" validate:"required,max=128"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("form"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

var formDecoder = form.NewDecoder()

// bindForm decodes the request's posted values into dst using its form tags.
// Values are trimmed except for passwords.
func bindForm(r *http.Request, dst any) error {
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(maxUploadBytes)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return fmt.Errorf("parse form: %w", err)
	}
	if err := formDecoder.Decode(dst, trimValues(r.PostForm)); err != nil {
		return fmt.Errorf("decode form: %w", err)
	}
	return nil
}

func trimValues(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for key, vals := range values {
		if strings.Contains(key, "password") {
			out[key] = vals
			continue
		}
		trimmed := make([]string, len(vals))
		for i, v := range vals {
			trimmed[i] = strings.TrimSpace(v)
		}
		out[key] = trimmed
	}
	return out
}

// fieldErrors turns validator failures into per-field messages.
func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = messageFor(fe)
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return msgRequired
	case "email":
		return msgInvalidEmail
	case "oneof":
		return msgInvalidChoice
	case "max":
		return fmt.Sprintf("Asegúrese de que este valor tenga como máximo %s caracteres.", fe.Param())
	default:
		return "Valor inválido."
	}
}
