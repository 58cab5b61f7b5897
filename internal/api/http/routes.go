package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"

	"github.com/tripcast/weather-advisor/internal/apperr"
	"github.com/tripcast/weather-advisor/internal/export"
	"github.com/tripcast/weather-advisor/internal/observability"
	"github.com/tripcast/weather-advisor/internal/requests"
	"github.com/tripcast/weather-advisor/internal/store"
)

var validate = validator.New()

// ErrorHandler renders every handler error as {"error": message}. Install it
// as the Fiber app's centralized error handler.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// Answerer is the interactive Q&A side of the assistant.
type Answerer interface {
	Answer(ctx context.Context, question string, contextJSON json.RawMessage) (string, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, svc *requests.Service, assistant Answerer, metrics *observability.Metrics) {
	api := app.Group("/api")

	api.Post("/requests", func(c *fiber.Ctx) error {
		var body createBody
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		rec, err := svc.Create(c.Context(), requests.CreateParams{
			Location:  body.Location,
			StartDate: body.StartDate,
			EndDate:   body.EndDate,
		})
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(rec)
	})

	api.Get("/requests", func(c *fiber.Ctx) error {
		items, err := svc.List(c.Context())
		if err != nil {
			return httpError(err)
		}
		return c.JSON(items)
	})

	// Registered before /requests/:id so "export" is not captured as an id.
	api.Get("/requests/export", func(c *fiber.Ctx) error {
		return handleExport(c, svc)
	})

	api.Get("/requests/:id", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return fiber.NewError(fiber.StatusBadRequest, "id is required")
		}
		rec, err := svc.Get(c.Context(), id)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(rec)
	})

	api.Put("/requests/:id", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return fiber.NewError(fiber.StatusBadRequest, "id is required")
		}

		var body updateBody
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
		}
		params, err := body.toParams()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		rec, err := svc.Update(c.Context(), id, params)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(rec)
	})

	api.Delete("/requests/:id", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return fiber.NewError(fiber.StatusBadRequest, "id is required")
		}
		if err := svc.Delete(c.Context(), id); err != nil {
			return httpError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	api.Delete("/requests", func(c *fiber.Ctx) error {
		if err := svc.DeleteAll(c.Context()); err != nil {
			return httpError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	api.Get("/forecast", func(c *fiber.Ctx) error {
		location := c.Query("location")
		startDate := c.Query("startDate")
		endDate := c.Query("endDate")
		if startDate == "" || endDate == "" {
			return fiber.NewError(fiber.StatusBadRequest, "startDate and endDate are required")
		}

		result, err := svc.Forecast(c.Context(), location, startDate, endDate)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(result)
	})

	api.Post("/ask", func(c *fiber.Ctx) error {
		var body askBody
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "question is required")
		}

		answer, err := assistant.Answer(c.Context(), body.Question, body.Context)
		if err != nil {
			countAsk(metrics, "error")
			return fiber.NewError(fiber.StatusServiceUnavailable, "AI service unavailable")
		}
		countAsk(metrics, "success")
		return c.JSON(fiber.Map{"answer": answer})
	})
}

func handleExport(c *fiber.Ctx, svc *requests.Service) error {
	format := strings.ToLower(c.Query("format", "json"))

	items, err := svc.List(c.Context())
	if err != nil {
		return httpError(err)
	}

	switch format {
	case "json":
		return c.JSON(items)
	case "csv":
		c.Set(fiber.HeaderContentType, "text/csv")
		return c.SendString(export.CSV(items))
	case "md", "markdown":
		c.Set(fiber.HeaderContentType, "text/markdown")
		return c.SendString(export.Markdown(items))
	default:
		return fiber.NewError(fiber.StatusBadRequest, "format must be json|csv|md")
	}
}

type createBody struct {
	Location  string `json:"location" validate:"required"`
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
}

type updateBody struct {
	Location    *string         `json:"location"`
	Lat         *float64        `json:"lat"`
	Lon         *float64        `json:"lon"`
	StartDate   *string         `json:"startDate"`
	EndDate     *string         `json:"endDate"`
	WeatherData json.RawMessage `json:"weatherData"`
	AIAdvice    json.RawMessage `json:"aiAdvice"`
	ExtraData   json.RawMessage `json:"extraData"`
}

func (b updateBody) toParams() (store.UpdateParams, error) {
	params := store.UpdateParams{
		Lat:       b.Lat,
		Lon:       b.Lon,
		StartDate: b.StartDate,
		EndDate:   b.EndDate,
	}
	if b.Location != nil {
		loc := strings.TrimSpace(*b.Location)
		if loc == "" {
			return params, errors.New("location must not be empty")
		}
		params.Location = &loc
	}
	if b.WeatherData != nil {
		params.WeatherData = datatypes.JSON(b.WeatherData)
	}
	if b.ExtraData != nil {
		params.ExtraData = datatypes.JSON(b.ExtraData)
	}

	// aiAdvice is tri-state: absent leaves it alone, null clears it, a string
	// replaces it.
	if b.AIAdvice != nil {
		if string(b.AIAdvice) == "null" {
			params.AIAdvice = &sql.NullString{}
		} else {
			var s string
			if err := json.Unmarshal(b.AIAdvice, &s); err != nil {
				return params, errors.New("aiAdvice must be a string or null")
			}
			params.AIAdvice = &sql.NullString{String: s, Valid: true}
		}
	}
	return params, nil
}

type askBody struct {
	Question string          `json:"question" validate:"required"`
	Context  json.RawMessage `json:"context"`
}

// httpError translates the error taxonomy to fiber errors; anything
// unrecognized becomes a 500 with the original message.
func httpError(err error) error {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

func countAsk(metrics *observability.Metrics, outcome string) {
	if metrics != nil {
		metrics.AskRequests.WithLabelValues(outcome).Inc()
	}
}
