package httpapi

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/ride-weather-viewer/internal/chart"
	"github.com/i474232898/ride-weather-viewer/internal/mapview"
	"github.com/i474232898/ride-weather-viewer/internal/viewer"
)

//go:embed web/index.html
var indexHTML []byte

// Controller runs ride submissions.
type Controller interface {
	Submit(ctx context.Context, form viewer.Form) (*viewer.Result, error)
	State() viewer.State
	Last() *viewer.Result
	Reset()
}

// ChartWriter serves the current chart.
type ChartWriter interface {
	WriteSVG(w io.Writer) error
	WritePNG(w io.Writer) error
}

// MapWriter serves the current map overlay.
type MapWriter interface {
	GeoJSON() ([]byte, error)
	WritePNG(w io.Writer, width, height int) error
	TileLayer() mapview.TileLayer
}

// Deps are the components the routes talk to.
type Deps struct {
	Controller Controller
	Chart      ChartWriter
	Map        MapWriter

	MapWidth       int
	MapHeight      int
	MaxUploadBytes int
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	app.Get("/", func(c *fiber.Ctx) error {
		c.Type("html", "utf-8")
		return c.Send(indexHTML)
	})

	v1 := app.Group("/api/v1")

	v1.Post("/ride", func(c *fiber.Ctx) error {
		form, err := bindRideForm(c, deps.MaxUploadBytes)
		if err != nil {
			return err
		}

		res, err := deps.Controller.Submit(c.UserContext(), form)
		if err != nil {
			return err
		}
		return c.JSON(res)
	})

	v1.Get("/status", func(c *fiber.Ctx) error {
		body := fiber.Map{"state": deps.Controller.State().String()}
		if last := deps.Controller.Last(); last != nil {
			body["last_result_id"] = last.ID
		}
		return c.JSON(body)
	})

	v1.Get("/chart.svg", func(c *fiber.Ctx) error {
		return sendChart(c, "image/svg+xml", deps.Chart.WriteSVG)
	})
	v1.Get("/chart.png", func(c *fiber.Ctx) error {
		return sendChart(c, "image/png", deps.Chart.WritePNG)
	})

	v1.Get("/map.geojson", func(c *fiber.Ctx) error {
		raw, err := deps.Map.GeoJSON()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to encode map")
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(raw)
	})

	v1.Get("/map.png", func(c *fiber.Ctx) error {
		width := c.QueryInt("width", deps.MapWidth)
		height := c.QueryInt("height", deps.MapHeight)
		if width <= 0 || height <= 0 || width > 4096 || height > 4096 {
			return fiber.NewError(fiber.StatusBadRequest, "width and height must be between 1 and 4096")
		}

		var buf bytes.Buffer
		if err := deps.Map.WritePNG(&buf, width, height); err != nil {
			if errors.Is(err, mapview.ErrNoOverlay) {
				return fiber.NewError(fiber.StatusNotFound, "no route has been drawn")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to render map")
		}
		c.Set(fiber.HeaderContentType, "image/png")
		return c.Send(buf.Bytes())
	})

	v1.Get("/map/tiles", func(c *fiber.Ctx) error {
		return c.JSON(deps.Map.TileLayer())
	})

	v1.Delete("/render", func(c *fiber.Ctx) error {
		deps.Controller.Reset()
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func sendChart(c *fiber.Ctx, contentType string, write func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		if errors.Is(err, chart.ErrNoChart) {
			return fiber.NewError(fiber.StatusNotFound, "no chart has been drawn")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to render chart")
	}
	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(buf.Bytes())
}

// bindRideForm reads the multipart form. A missing file is left for the
// controller to report with the other missing fields.
func bindRideForm(c *fiber.Ctx, maxBytes int) (viewer.Form, error) {
	form := viewer.Form{
		Date:      c.FormValue("ride_date"),
		StartTime: c.FormValue("start_time"),
		EndTime:   c.FormValue("end_time"),
	}

	fh, err := c.FormFile("gpx_file")
	if err != nil {
		return form, nil
	}
	if maxBytes > 0 && fh.Size > int64(maxBytes) {
		return form, fiber.NewError(fiber.StatusRequestEntityTooLarge, "GPX file is too large")
	}

	f, err := fh.Open()
	if err != nil {
		return form, fiber.NewError(fiber.StatusBadRequest, "could not read GPX file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return form, fiber.NewError(fiber.StatusBadRequest, "could not read GPX file")
	}

	form.Filename = fh.Filename
	form.GPX = data
	return form, nil
}
