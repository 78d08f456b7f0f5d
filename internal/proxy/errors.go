package proxy

import (
	"fmt"
	"net/http"
)

// MapAPIError turns an upstream status into a user facing message.
func MapAPIError(status int, resource string) string {
	if resource == "" {
		resource = "resource"
	}
	switch status {
	case http.StatusUnauthorized:
		return "You are not authenticated."
	case http.StatusForbidden:
		return "You are not authorized to do this action."
	case http.StatusNotFound:
		return fmt.Sprintf("The %s you are looking for could not be found.", resource)
	case http.StatusConflict:
		return fmt.Sprintf("Error-409. The %s you are trying to create is already present", resource)
	case http.StatusUnprocessableEntity:
		return "Error-422. Unprocessable request"
	case http.StatusInternalServerError:
		return "Error-500. Something went wrong on our end."
	case http.StatusBadGateway:
		return "Error-502. Received an invalid response from the upstream server."
	case http.StatusGatewayTimeout:
		return "Error-504. Server is busy. Please try again after some time."
	default:
		return "Something went wrong."
	}
}
