package handler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"github.com/stevemurr/friends-server/friends"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling file parts to disk.
const multipartMemory = 8 << 20

var (
	validate    *validator.Validate
	phoneRegexp = regexp.MustCompile(`^\+?[0-9]+$`)
)

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("form")
	})
	if err := validate.RegisterValidation("phone", validatePhone); err != nil {
		panic(err)
	}
}

func validatePhone(fl validator.FieldLevel) bool {
	return phoneRegexp.MatchString(fl.Field().String())
}

// friendForm is the body of POST /friends and PUT /friends/{id}. The avatar
// arrives either as a file part or as a base64 text field.
type friendForm struct {
	Name         string `form:"name" validate:"required"`
	Phone        string `form:"phone" validate:"required,phone,min=10,max=14"`
	AvatarBase64 string `form:"avatar" validate:"required_without=AvatarFile,omitempty,base64"`
	AvatarFile   []byte `form:"avatar" validate:"required_without=AvatarBase64"`

	avatarMimeType string
}

// fieldMessages are the per-field messages clients see.
var fieldMessages = map[string]string{
	"name":   "Name is incorrect",
	"phone":  "Phone number is incorrect",
	"avatar": "Avatar is incorrect",
}

// readFriend parses and validates a friend body. On failure it writes the
// 400 (or 413) response itself and returns false.
func (h *Handler) readFriend(w http.ResponseWriter, r *http.Request) (friends.NewFriend, bool) {
	form, err := h.parseFriendForm(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return friends.NewFriend{}, false
		}
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return friends.NewFriend{}, false
	}

	if details := validateForm(form); len(details) > 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: details[0].Message, Details: details})
		return friends.NewFriend{}, false
	}

	n, err := form.toNewFriend()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return friends.NewFriend{}, false
	}
	return n, true
}

func (h *Handler) parseFriendForm(w http.ResponseWriter, r *http.Request) (*friendForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	isMultipart := strings.HasPrefix(mediaType, "multipart/")
	if isMultipart {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, err
		}
		defer r.MultipartForm.RemoveAll()
	} else if err := r.ParseForm(); err != nil {
		return nil, err
	}

	form := &friendForm{
		Name:         r.PostFormValue("name"),
		Phone:        strings.TrimSpace(r.PostFormValue("phone")),
		AvatarBase64: strings.TrimSpace(r.PostFormValue("avatar")),
	}

	if isMultipart {
		file, header, err := r.FormFile("avatar")
		switch {
		case errors.Is(err, http.ErrMissingFile):
			// avatar, if any, came as a text field
		case err != nil:
			return nil, err
		default:
			defer file.Close()
			data, err := io.ReadAll(file)
			if err != nil {
				return nil, err
			}
			form.AvatarFile = data
			form.avatarMimeType = header.Header.Get("Content-Type")
		}
	}
	return form, nil
}

// validateForm returns one detail per invalid field, in declaration order.
func validateForm(form *friendForm) []fieldDetail {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []fieldDetail{{Field: "body", Message: err.Error()}}
	}
	seen := make(map[string]bool)
	var details []fieldDetail
	for _, e := range fieldErrs {
		field := e.Field()
		if seen[field] {
			continue
		}
		seen[field] = true
		details = append(details, fieldDetail{
			Field:   field,
			Message: fieldMessages[field],
			Reason:  validationReason(e),
		})
	}
	return details
}

func validationReason(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "required_without":
		return "field is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", e.Param())
	case "phone":
		return "must contain only digits, optionally prefixed with +"
	case "base64":
		return "must be base64 encoded"
	default:
		return fmt.Sprintf("validation failed: %s", e.Tag())
	}
}

// toNewFriend converts a validated form. The avatar media type comes from the
// file part header, and is sniffed from the content when the header is
// missing or generic, or when the avatar was sent as base64 text.
func (f *friendForm) toNewFriend() (friends.NewFriend, error) {
	phone, err := strconv.ParseInt(f.Phone, 10, 64)
	if err != nil {
		return friends.NewFriend{}, fmt.Errorf("%s", fieldMessages["phone"])
	}

	avatar := f.AvatarFile
	mimeType := f.avatarMimeType
	if len(avatar) == 0 {
		avatar, err = base64.StdEncoding.DecodeString(f.AvatarBase64)
		if err != nil {
			return friends.NewFriend{}, fmt.Errorf("%s", fieldMessages["avatar"])
		}
		mimeType = ""
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = mimetype.Detect(avatar).String()
	}

	return friends.NewFriend{
		Name:           f.Name,
		Phone:          phone,
		Avatar:         avatar,
		AvatarMimeType: mimeType,
	}, nil
}
