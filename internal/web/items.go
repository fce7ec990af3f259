package web

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gsetrade/gsebook/internal/filestore"
	"github.com/gsetrade/gsebook/internal/inventory"
	"github.com/gsetrade/gsebook/internal/model"
	"github.com/gsetrade/gsebook/internal/store"
)

// itemFormPage is the data of the add and edit forms.
type itemFormPage struct {
	PageData
	Item  *model.Item
	Specs model.SpecMap
}

// AddItemPage handles GET /add_item.
func (s *Server) AddItemPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, http.StatusOK, "add_item.html", &itemFormPage{
		PageData: s.page(w, r, "Add item"),
		Item:     &model.Item{Type: model.ItemTypeLaptop},
		Specs:    model.SpecMap{},
	})
}

// AddItemSubmit handles POST /add_item.
func (s *Server) AddItemSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())

	files, err := s.parseMultipart(w, r)
	if err != nil {
		s.fail(w, r, err, "/add_item", "add item")
		return
	}
	defer files.close()

	in, err := inventory.ParsePurchaseForm(r.PostForm)
	if err != nil {
		s.fail(w, r, err, "/add_item", "add item")
		return
	}

	item, err := s.Inventory.Create(r.Context(), in, files.images, files.agreement)
	if err != nil {
		s.fail(w, r, err, "/add_item", "add item")
		return
	}

	slog.Info("item created", "user", claims.Username, "item", item.ID, "name", item.Name, "images", len(item.Images))
	addFlash(w, r, FlashSuccess, "Item added successfully!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// MarkSold handles POST /mark_as_sold/{id}.
func (s *Server) MarkSold(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		s.fail(w, r, err, "/", "mark item as sold")
		return
	}
	in, err := inventory.ParseSaleForm(r.PostForm)
	if err != nil {
		s.fail(w, r, err, "/", "mark item as sold")
		return
	}

	item, err := s.Inventory.MarkSold(r.Context(), id, in)
	if err != nil {
		s.fail(w, r, err, "/", "mark item as sold")
		return
	}

	slog.Info("item sold", "user", claims.Username, "item", id, "net_profit", item.Sale.NetProfit.String())
	addFlash(w, r, FlashSuccess, "Item marked as sold successfully!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// DeleteItem handles POST /delete_item/{id}.
func (s *Server) DeleteItem(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	item, err := s.Inventory.Delete(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "/", "delete item")
		return
	}

	slog.Info("item deleted", "user", claims.Username, "item", id, "name", item.Name)
	addFlash(w, r, FlashSuccess, "Item deleted successfully!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// EditItemPage handles GET /edit_item/{id}.
func (s *Server) EditItemPage(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	item, err := store.GetItem(r.Context(), s.DB, id)
	if err != nil {
		s.fail(w, r, err, "/", "load item")
		return
	}
	if item == nil {
		s.fail(w, r, inventory.ErrNotFound, "/", "load item")
		return
	}

	s.Templates.Render(w, http.StatusOK, "edit_item.html", &itemFormPage{
		PageData: s.page(w, r, "Edit "+item.Name),
		Item:     item,
		Specs:    item.Specifications,
	})
}

// EditItemSubmit handles POST /edit_item/{id}.
func (s *Server) EditItemSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	back := fmt.Sprintf("/edit_item/%d", id)

	files, err := s.parseMultipart(w, r)
	if err != nil {
		s.fail(w, r, err, back, "edit item")
		return
	}
	defer files.close()

	in, err := inventory.ParsePurchaseForm(r.PostForm)
	if err != nil {
		s.fail(w, r, err, back, "edit item")
		return
	}

	var sale *inventory.SaleInput
	if r.PostForm.Get("selling_price") != "" {
		if sale, err = inventory.ParseEditSaleForm(r.PostForm); err != nil {
			s.fail(w, r, err, back, "edit item")
			return
		}
	}

	item, err := s.Inventory.Edit(r.Context(), id, in, sale, files.images, files.agreement)
	if err != nil {
		s.fail(w, r, err, back, "edit item")
		return
	}

	slog.Info("item updated", "user", claims.Username, "item", id, "name", item.Name)
	addFlash(w, r, FlashSuccess, "Item updated successfully!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// fail reports err to the user as a flash message and redirects to back.
// Request errors are shown as they are; anything else is logged and replaced
// with a generic message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, back, action string) {
	var verr *inventory.ValidationError
	var maxErr *http.MaxBytesError

	switch {
	case errors.As(err, &verr):
		addFlash(w, r, FlashError, verr.Error())
	case errors.As(err, &maxErr):
		addFlash(w, r, FlashError, fmt.Sprintf("Upload too large (limit %d MB).", maxErr.Limit>>20))
	case errors.Is(err, inventory.ErrNotFound):
		addFlash(w, r, FlashError, "Item not found.")
		back = "/"
	case errors.Is(err, filestore.ErrRemoteStorage):
		slog.Error("file storage failed", "action", action, "error", err)
		addFlash(w, r, FlashError, fmt.Sprintf("Could not %s: file storage is unavailable. Please try again.", action))
	default:
		slog.Error("request failed", "action", action, "error", err)
		addFlash(w, r, FlashError, fmt.Sprintf("Could not %s. Please try again.", action))
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func itemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// formFiles are the uploads of an item form.
type formFiles struct {
	images    []inventory.Upload
	agreement *inventory.Upload
	open      []io.Closer
	form      *multipart.Form
}

func (f *formFiles) close() {
	for _, c := range f.open {
		c.Close()
	}
	f.form.RemoveAll()
}

// parseMultipart parses an item form and opens its files. Empty file inputs
// are skipped.
func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) (*formFiles, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUpload)
	if err := r.ParseMultipartForm(s.MaxUpload); err != nil {
		return nil, fmt.Errorf("parsing form: %w", err)
	}

	files := &formFiles{form: r.MultipartForm}
	openFile := func(fh *multipart.FileHeader) (*inventory.Upload, error) {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("opening upload %s: %w", fh.Filename, err)
		}
		files.open = append(files.open, f)
		return &inventory.Upload{Filename: fh.Filename, Body: f}, nil
	}

	for _, fh := range r.MultipartForm.File["item_images"] {
		if fh.Filename == "" || fh.Size == 0 {
			continue
		}
		up, err := openFile(fh)
		if err != nil {
			files.close()
			return nil, err
		}
		files.images = append(files.images, *up)
	}

	for _, fh := range r.MultipartForm.File["agreement_image"] {
		if fh.Filename == "" || fh.Size == 0 {
			continue
		}
		up, err := openFile(fh)
		if err != nil {
			files.close()
			return nil, err
		}
		files.agreement = up
		break
	}

	return files, nil
}
