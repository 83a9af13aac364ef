package handler

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"

	"sheetvault/internal/extract"
	"sheetvault/internal/model"
	"sheetvault/internal/service"
)

// RegisterRoutes attaches the archive API to the provided Fiber app.
func RegisterRoutes(app *fiber.App, svc service.ArchiveService, pipeline *extract.Pipeline) {
	app.Get("/healthz", LivenessProbe())

	app.Get("/archives", ListArchives(svc))
	app.Post("/archives", CreateArchive(svc))
	app.Get("/archives/:id", GetArchive(svc))
	app.Delete("/archives/:id", DeleteArchive(svc))
	app.Delete("/archives", ClearArchives(svc))
	app.Post("/archives/:id/rows", ExtractArchive(svc, pipeline))
}

// LivenessProbe is a simple liveness endpoint.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// ListArchives returns the merged local/remote archive listing,
// most-recent-first.
func ListArchives(svc service.ArchiveService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		recs, err := svc.List(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"data": recs, "total": len(recs)})
	}
}

// CreateArchive accepts a multipart upload (field name: file) with an
// optional description field and archives it.
func CreateArchive(svc service.ArchiveService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_READ_ERROR", "cannot read uploaded file")
		}

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		rec, err := svc.Archive(c.UserContext(), service.ArchiveInput{
			FileName:    fh.Filename,
			ContentType: ct,
			Data:        data,
			Metadata:    model.Metadata{Description: c.FormValue("description")},
		})
		if err != nil {
			if errors.Is(err, service.ErrFileRequired) {
				return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Status(fiber.StatusCreated).JSON(rec)
	}
}

// GetArchive returns a single archive with a freshly resolved download URL.
func GetArchive(svc service.ArchiveService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rec, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		if rec == nil {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "archive not found")
		}
		return c.JSON(rec)
	}
}

// DeleteArchive removes an archive from both backends.
func DeleteArchive(svc service.ArchiveService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ok, err := svc.Delete(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		if !ok {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "archive not found")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ClearArchives deletes every archive.
func ClearArchives(svc service.ArchiveService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := svc.ClearAll(c.UserContext()); err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ExtractArchive runs the extraction pipeline for an archive and returns the
// validated rows.
func ExtractArchive(svc service.ArchiveService, pipeline *extract.Pipeline) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rec, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		if rec == nil {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "archive not found")
		}

		rows, err := pipeline.Extract(c.UserContext(), rec)
		if err != nil {
			if errors.Is(err, extract.ErrNoValidRows) || errors.Is(err, extract.ErrNoRows) || errors.Is(err, extract.ErrNoSheets) {
				return writeError(c, fiber.StatusUnprocessableEntity, "NO_VALID_ROWS", "spreadsheet contains no valid rows")
			}
			return writeError(c, fiber.StatusBadGateway, "EXTRACTION_FAILED", "could not extract archive contents")
		}
		return c.JSON(fiber.Map{"archive_id": rec.ID, "rows": rows, "total": len(rows)})
	}
}
