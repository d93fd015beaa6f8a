package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/customers/internal/domain"
)

// errMalformedBody - тело запроса не разбирается как JSON ожидаемой формы.
var errMalformedBody = domain.NewError(domain.KindStructural, "request body is malformed")

// errInvalidID - идентификатор в пути не является положительным целым.
var errInvalidID = domain.NewError(domain.KindStructural, "identifier must be a positive integer")

// writeError переводит доменную ошибку в HTTP-ответ {"message": ...}.
// Внутренние детали наружу не отдаются, но пишутся в лог.
func writeError(c *gin.Context, logger *log.Entry, err error) {
	status := domain.StatusCode(err)
	if status >= http.StatusInternalServerError {
		entry := logger.WithError(err).WithField("route", c.FullPath())
		if id := requestIDFrom(c); id != "" {
			entry = entry.WithField("request_id", id)
		}
		entry.Error("request failed")
	}
	c.AbortWithStatusJSON(status, errorResponse{
		Message:   domain.Message(err),
		RequestID: requestIDFrom(c),
	})
}

// bindError оборачивает ошибку разбора тела в структурную.
func bindError(err error) error {
	var derr *domain.Error
	if errors.As(err, &derr) {
		return err
	}
	return domain.WrapError(domain.KindStructural, errMalformedBody.Message, err)
}
