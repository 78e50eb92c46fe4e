package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sangkips/tillpoint/internal/presentation/http/dto/request"
	"github.com/sangkips/tillpoint/internal/presentation/http/dto/response"
	"github.com/sangkips/tillpoint/internal/presentation/http/middleware"
	"github.com/sangkips/tillpoint/pkg/printer"
)

// parseInt64Param reads a positive integer path parameter. It writes a 400 and
// returns false when the value is invalid.
func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}

func parseCartID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid cart ID format")
		return uuid.Nil, false
	}
	return id, true
}

// printContext carries the operator's printer dialog result into the device session
// and reports whether the caller may use the direct channel.
func printContext(c *gin.Context, opts request.PrintOptions) (context.Context, printer.SendOptions) {
	ctx := c.Request.Context()
	switch {
	case opts.Cancelled:
		ctx = printer.WithSelectionCancelled(ctx)
	case opts.Device != "":
		ctx = printer.WithDeviceChoice(ctx, opts.Device)
	}
	return ctx, printer.SendOptions{
		PreferDirect: opts.Direct,
		Trusted:      middleware.IsTrusted(c),
	}
}
