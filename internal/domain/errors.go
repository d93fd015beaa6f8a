package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind классифицирует ошибку ядра для маппинга в статус ответа.
type ErrorKind string

const (
	// KindStructural - некорректное обязательное поле (пустая строка, id <= 0, пустой список позиций).
	KindStructural ErrorKind = "structural_invalid"
	// KindTemporal - дата в будущем.
	KindTemporal ErrorKind = "temporal_invalid"
	// KindConflict - конфликт уникальности или владения.
	KindConflict ErrorKind = "conflict"
	// KindNotFound - сущность не найдена.
	KindNotFound ErrorKind = "not_found"
	// KindIntegrity - нарушение целостности хранилища или внутренней выборки.
	KindIntegrity ErrorKind = "integrity_fault"
)

// Базовые sentinel-ошибки по видам; конкретные ошибки сравниваются с ними через errors.Is.
var (
	ErrInvalid   = errors.New("invalid argument")
	ErrTemporal  = errors.New("date is in the future")
	ErrConflict  = errors.New("conflict")
	ErrNotFound  = errors.New("not found")
	ErrIntegrity = errors.New("integrity fault")
)

// Error - единый объект ошибки ядра: вид, сообщение для клиента и исходная причина.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is позволяет сравнивать ошибку с sentinel своего вида.
func (e *Error) Is(target error) bool {
	return kindSentinel(e.Kind) == target
}

func kindSentinel(kind ErrorKind) error {
	switch kind {
	case KindStructural:
		return ErrInvalid
	case KindTemporal:
		return ErrTemporal
	case KindConflict:
		return ErrConflict
	case KindNotFound:
		return ErrNotFound
	case KindIntegrity:
		return ErrIntegrity
	default:
		return nil
	}
}

// NewError создаёт ошибку заданного вида с сообщением для клиента.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError создаёт ошибку заданного вида поверх причины.
func WrapError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Сообщения, возвращаемые клиентам.
const (
	MsgCustomerNotFound     = "Customer not found"
	MsgAddressNotFound      = "Address not found"
	MsgOrderNotFound        = "Order not found"
	MsgProductNotFound      = "Product not found"
	MsgPaginationError      = "The pagination parameters 'pageSize' and 'pageNumber' must be positive numbers. Check the values provided."
	MsgDateOfBirthError     = "You cannot put the date with the day after today."
	MsgOrderDateError       = "The order date cannot be later than today."
	MsgEmailExists          = "This email exists"
	MsgAddressExists        = "This address already exists"
	MsgAddressNotOwned      = "The Address id does not belong to this client."
	MsgAddressCannotBeNull  = "Address cannot be null"
	MsgAddressWithoutID     = "you cannot change the address without your addressId"
	MsgDuplicateEmailsFound = "Duplicate email(s) found in input"
	MsgProductFieldsInvalid = "fields in product are invalid"
	MsgOrderFieldsInvalid   = "fields in order are invalid"
	MsgCustomerHasOrders    = "The customer has orders and cannot be deleted"
	MsgProductCodeExists    = "This product code exists"
	MsgPersistenceFailed    = "failed to persist changes"
)

var (
	// ErrEmailExists - email уже занят другим клиентом.
	ErrEmailExists = NewError(KindConflict, MsgEmailExists)
	// ErrProductCodeExists - код продукта уже занят.
	ErrProductCodeExists = NewError(KindConflict, MsgProductCodeExists)
	// ErrCustomerHasOrders - удаление клиента запрещено, пока у него есть заказы.
	ErrCustomerHasOrders = NewError(KindConflict, MsgCustomerHasOrders)
	// ErrCustomerNotFound возвращается, если клиент не найден в репозитории.
	ErrCustomerNotFound = NewError(KindNotFound, MsgCustomerNotFound)
	// ErrAddressNotFound возвращается, если адрес не найден.
	ErrAddressNotFound = NewError(KindNotFound, MsgAddressNotFound)
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = NewError(KindNotFound, MsgOrderNotFound)
	// ErrProductNotFound возвращается, если продукт не найден.
	ErrProductNotFound = NewError(KindNotFound, MsgProductNotFound)
	// ErrDateOfBirthInFuture - дата рождения позже сегодняшней даты (UTC).
	ErrDateOfBirthInFuture = NewError(KindTemporal, MsgDateOfBirthError)
	// ErrAddressExists - у клиента уже есть адрес с теми же полями.
	ErrAddressExists = NewError(KindConflict, MsgAddressExists)
	// ErrAddressNotOwned - адрес принадлежит другому клиенту.
	ErrAddressNotOwned = NewError(KindConflict, MsgAddressNotOwned)
	// ErrAddressCannotBeNull - передан id адреса без тела патча.
	ErrAddressCannotBeNull = NewError(KindStructural, MsgAddressCannotBeNull)
	// ErrAddressWithoutID - передано тело патча без id адреса.
	ErrAddressWithoutID = NewError(KindStructural, MsgAddressWithoutID)
	// ErrPagination - отрицательные параметры пагинации.
	ErrPagination = NewError(KindStructural, MsgPaginationError)
	// ErrProductFieldsInvalid - продукт позиции не прошёл проверку.
	ErrProductFieldsInvalid = NewError(KindStructural, MsgProductFieldsInvalid)
	// ErrOrderFieldsInvalid - заказ построен, но не валиден.
	ErrOrderFieldsInvalid = NewError(KindStructural, MsgOrderFieldsInvalid)
	// ErrAmountMismatch - сохранённая сумма заказа не совпадает с суммой позиций.
	ErrAmountMismatch = NewError(KindIntegrity, "order total does not match items sum")
)

// DuplicateEmailsError перечисляет повторяющиеся email пакета в порядке первого появления.
func DuplicateEmailsError(emails []string) *Error {
	return NewError(KindStructural, fmt.Sprintf("%s: %s.", MsgDuplicateEmailsFound, strings.Join(emails, ", ")))
}

// EmailTakenError сообщает, что email записи пакета уже занят.
func EmailTakenError(email string) *Error {
	return WrapError(KindConflict, fmt.Sprintf("This email: '%s' exists", email), nil)
}

// EmailInUse - email, на котором сработал уникальный индекс хранилища.
type EmailInUse struct {
	Email string
}

func (e EmailInUse) Error() string {
	return fmt.Sprintf("email %q is already in use", e.Email)
}

// EmailConflict - ErrEmailExists с адресом, вызвавшим конфликт. Пустой email даёт голый ErrEmailExists.
func EmailConflict(email string) error {
	if email == "" {
		return ErrEmailExists
	}
	return fmt.Errorf("%w: %w", ErrEmailExists, EmailInUse{Email: email})
}

// ProductCodeNotFoundError сообщает, что продукт с кодом отсутствует в каталоге.
func ProductCodeNotFoundError(code string) *Error {
	return NewError(KindNotFound, fmt.Sprintf("%s. Code: %s", MsgProductNotFound, code))
}

// KindOf возвращает вид ошибки; неизвестные ошибки считаются нарушением целостности.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindIntegrity
}

// StatusCode маппит ошибку ядра в HTTP-статус.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch KindOf(err) {
	case KindStructural, KindTemporal:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message возвращает текст для клиента; для внутренних ошибок детали не раскрываются.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		if de.Kind == KindIntegrity && de.Message == "" {
			return MsgPersistenceFailed
		}
		if de.Message != "" {
			return de.Message
		}
	}
	return MsgPersistenceFailed
}

// IsConflict проверяет, является ли ошибка конфликтом.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsNotFound проверяет, означает ли ошибка отсутствие сущности.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation проверяет, относится ли ошибка к ошибкам валидации (400).
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalid) || errors.Is(err, ErrTemporal)
}

// IsIntegrity проверяет, является ли ошибка нарушением целостности.
func IsIntegrity(err error) bool {
	return errors.Is(err, ErrIntegrity)
}
