// Package apperr defines the marketplace error taxonomy. Every failure the
// store surfaces to a caller is an *Error of one of four kinds; anything else
// is an unexpected storage or programming failure.
package apperr

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuthorization
	KindConflict
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// HTTPCode returns the status code the API answers with for this kind.
func (k Kind) HTTPCode() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details string
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// Is matches on Code so that a copy produced by WithDetails still satisfies
// errors.Is against the sentinel it came from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

func (e *Error) WithDetails(details string) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message, Details: details}
}

func (e *Error) WithDetailsf(format string, args ...any) *Error {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

func Validation(code, message string) *Error { return New(KindValidation, code, message) }
func Authorization(code, message string) *Error { return New(KindAuthorization, code, message) }
func Conflict(code, message string) *Error { return New(KindConflict, code, message) }
func NotFound(code, message string) *Error { return New(KindNotFound, code, message) }

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf reports the kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return 0
}

var (
	ErrInvalidInput    = Validation("INVALID_INPUT", "invalid input")
	ErrInvalidQuantity = Validation("INVALID_QUANTITY", "quantity must be greater than 0")
	ErrInvalidRating   = Validation("INVALID_RATING", "rating must be between 1 and 5")
	ErrInvalidComment  = Validation("INVALID_COMMENT", "comment must be between 1 and 1000 characters")
	ErrSellerReview    = Validation("SELLER_REVIEW", "sellers cannot review products")
	ErrSelfReview      = Validation("SELF_REVIEW", "sellers cannot review their own products")
	ErrEmptyCart       = Validation("EMPTY_CART", "cart is empty")
	ErrPaymentMethod   = Validation("PAYMENT_METHOD_UNAVAILABLE", "payment method is not available")

	ErrSellerForbidden = Authorization("SELLER_FORBIDDEN", "sellers cannot hold a cart or place orders")
	ErrSellerOnly      = Authorization("SELLER_ONLY", "only sellers can perform this action")
	ErrNotOwner        = Authorization("NOT_OWNER", "you do not own this resource")
	ErrInvalidLogin    = Authorization("INVALID_CREDENTIALS", "invalid username or password")

	ErrOutOfStock        = Conflict("OUT_OF_STOCK", "not enough stock available")
	ErrDuplicateReview   = Conflict("DUPLICATE_REVIEW", "you have already reviewed this product")
	ErrSlugExhausted     = Conflict("SLUG_CONFLICT", "could not assign a unique slug")
	ErrUsernameTaken     = Conflict("USERNAME_TAKEN", "username is already taken")
	ErrStoreNameTaken    = Conflict("STORE_NAME_TAKEN", "store name is already taken")
	ErrProfileExists     = Conflict("PROFILE_EXISTS", "seller profile is already set up")
	ErrInvalidTransition = Conflict("INVALID_STATUS_TRANSITION", "order cannot move to the requested status")
	ErrVersionMismatch   = Conflict("VERSION_MISMATCH", "the record was modified by someone else")

	ErrUserNotFound          = NotFound("USER_NOT_FOUND", "user not found")
	ErrProductNotFound       = NotFound("PRODUCT_NOT_FOUND", "product not found")
	ErrCategoryNotFound      = NotFound("CATEGORY_NOT_FOUND", "category not found")
	ErrOrderNotFound         = NotFound("ORDER_NOT_FOUND", "order not found")
	ErrCartItemNotFound      = NotFound("CART_ITEM_NOT_FOUND", "cart item not found")
	ErrProfileNotFound       = NotFound("PROFILE_NOT_FOUND", "seller profile is not set up")
	ErrStoreNotFound         = NotFound("STORE_NOT_FOUND", "store not found")
	ErrPaymentMethodNotFound = NotFound("PAYMENT_METHOD_NOT_FOUND", "payment method not found")
)
