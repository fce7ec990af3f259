// Package inventory implements the item lifecycle: purchase, sale, edit and
// deletion, including the files stored alongside each item.
package inventory

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/gsetrade/gsebook/internal/filestore"
	"github.com/gsetrade/gsebook/internal/imaging"
	"github.com/gsetrade/gsebook/internal/model"
	"github.com/gsetrade/gsebook/internal/store"
)

// ExpensePolicy decides what happens to purchase expenses resubmitted with
// a mark-as-sold form.
type ExpensePolicy string

const (
	// PolicyKeep leaves the recorded purchase expenses untouched.
	PolicyKeep ExpensePolicy = "keep"
	// PolicyOverwrite replaces purchase expenses with the resubmitted values
	// before profits are computed.
	PolicyOverwrite ExpensePolicy = "overwrite"
)

// ParseExpensePolicy parses a policy name; empty means PolicyKeep.
func ParseExpensePolicy(s string) (ExpensePolicy, error) {
	switch ExpensePolicy(s) {
	case "", PolicyKeep:
		return PolicyKeep, nil
	case PolicyOverwrite:
		return PolicyOverwrite, nil
	default:
		return "", fmt.Errorf("unknown expense policy %q (want keep or overwrite)", s)
	}
}

// Upload is a file received with a form.
type Upload struct {
	Filename string
	Body     io.Reader
}

// Service runs item lifecycle operations against the database and file store.
type Service struct {
	DB     *sql.DB
	Files  filestore.Store
	Policy ExpensePolicy
}

// NewService creates a lifecycle service.
func NewService(db *sql.DB, files filestore.Store, policy ExpensePolicy) *Service {
	return &Service{DB: db, Files: files, Policy: policy}
}

// preparedFiles are validated uploads that have not been stored yet.
type preparedFiles struct {
	photos    []*imaging.Result
	agreement *imaging.Result
}

// prepare reads and checks every upload so that nothing is sent to the file
// store unless the whole request is acceptable.
func prepare(images []Upload, agreement *Upload) (*preparedFiles, error) {
	p := &preparedFiles{}
	verr := &ValidationError{}

	for _, img := range images {
		res, err := imaging.Photo(img.Filename, img.Body)
		if err != nil {
			verr.add("item_images", err.Error())
			continue
		}
		p.photos = append(p.photos, res)
	}

	if agreement != nil {
		res, err := imaging.Document(agreement.Filename, agreement.Body)
		if err != nil {
			verr.add("agreement_image", err.Error())
		}
		p.agreement = res
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return p, nil
}

// storedFiles are the links produced by one request.
type storedFiles struct {
	images    []string
	agreement string
}

func (s storedFiles) all() []string {
	links := append([]string(nil), s.images...)
	if s.agreement != "" {
		links = append(links, s.agreement)
	}
	return links
}

// save uploads prepared files under folder. On failure the files stored so
// far are removed again; folders created on the way are left in place.
// The storage calls made for the request are logged.
func (s *Service) save(ctx context.Context, folder string, p *preparedFiles) (stored storedFiles, err error) {
	files := filestore.NewCounting(s.Files)
	defer func() {
		lookups, uploads, removes := files.Counts()
		slog.Info("item files stored", "folder", folder,
			"folder_lookups", lookups, "uploads", uploads, "removes", removes, "failed", err != nil)
	}()

	var out storedFiles

	for _, photo := range p.photos {
		f, err := filestore.Save(ctx, files, []string{folder, model.FolderProductImages}, photo.Name, bytes.NewReader(photo.Data), photo.MIME)
		if err != nil {
			discard(ctx, files, out.all())
			return storedFiles{}, fmt.Errorf("storing product image: %w", err)
		}
		out.images = append(out.images, f.Link)
	}

	if p.agreement != nil {
		a := p.agreement
		f, err := filestore.Save(ctx, files, []string{folder, model.FolderAgreement}, a.Name, bytes.NewReader(a.Data), a.MIME)
		if err != nil {
			discard(ctx, files, out.all())
			return storedFiles{}, fmt.Errorf("storing agreement: %w", err)
		}
		out.agreement = f.Link
	}

	return out, nil
}

// discard removes files that were stored for a request that then failed.
func discard(ctx context.Context, files filestore.Store, links []string) {
	for _, link := range links {
		if err := files.Remove(ctx, link); err != nil {
			slog.Warn("failed to remove orphaned upload", "link", link, "error", err)
		}
	}
}

// Create stores the uploads of a new item and inserts its row. The agreement
// is mandatory. The row insert is the last step.
func (s *Service) Create(ctx context.Context, in *PurchaseInput, images []Upload, agreement *Upload) (*model.Item, error) {
	if agreement == nil {
		return nil, &ValidationError{Fields: map[string]string{"agreement_image": "is required"}}
	}

	prepared, err := prepare(images, agreement)
	if err != nil {
		return nil, err
	}

	stored, err := s.save(ctx, model.ItemFolder(in.Name, in.PurchaseDate), prepared)
	if err != nil {
		return nil, err
	}

	item := &model.Item{Images: stored.images, AgreementImage: stored.agreement}
	if item.Images == nil {
		item.Images = []string{}
	}
	in.apply(item)

	var created *model.Item
	err = store.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		created, err = store.CreateItem(ctx, tx, item)
		return err
	})
	if err != nil {
		discard(ctx, s.Files, stored.all())
		return nil, err
	}
	return created, nil
}

// MarkSold records a sale on an existing item and recomputes its profits.
// The item is read and written in one transaction.
func (s *Service) MarkSold(ctx context.Context, id int64, in *SaleInput) (*model.Item, error) {
	var item *model.Item
	err := store.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var err error
		item, err = store.GetItem(ctx, tx, id)
		if err != nil {
			return err
		}
		if item == nil {
			return ErrNotFound
		}

		if s.Policy == PolicyOverwrite {
			item.Expenses = in.PurchaseExpenses.ApplyTo(item.Expenses)
		}
		item.Sell(in.sale())

		_, err = store.UpdateItem(ctx, tx, item)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Edit overwrites the purchase-side fields and specifications of an item.
// New images replace the whole list and a new agreement replaces the old
// one; the replaced files stay in the store. Sale fields are only applied
// to items that are already sold, and profits of sold items are always
// recomputed.
func (s *Service) Edit(ctx context.Context, id int64, in *PurchaseInput, sale *SaleInput, images []Upload, agreement *Upload) (*model.Item, error) {
	existing, err := store.GetItem(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNotFound
	}

	prepared, err := prepare(images, agreement)
	if err != nil {
		return nil, err
	}

	stored, err := s.save(ctx, model.ItemFolder(in.Name, in.PurchaseDate), prepared)
	if err != nil {
		return nil, err
	}

	var item *model.Item
	err = store.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var err error
		item, err = store.GetItem(ctx, tx, id)
		if err != nil {
			return err
		}
		if item == nil {
			return ErrNotFound
		}

		in.apply(item)
		if len(stored.images) > 0 {
			item.Images = stored.images
		}
		if stored.agreement != "" {
			item.AgreementImage = stored.agreement
		}

		if item.Sold() {
			next := *item.Sale
			if sale != nil {
				next = sale.sale()
			}
			item.Sell(next)
		}

		_, err = store.UpdateItem(ctx, tx, item)
		return err
	})
	if err != nil {
		discard(ctx, s.Files, stored.all())
		return nil, err
	}
	return item, nil
}

// Delete removes an item. Its files and folder are removed best-effort;
// failures are logged and never prevent the row from being deleted.
func (s *Service) Delete(ctx context.Context, id int64) (*model.Item, error) {
	item, err := store.GetItem(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}

	links := append(append([]string(nil), item.Images...), item.AgreementImage)
	for _, link := range links {
		if err := s.Files.Remove(ctx, link); err != nil {
			slog.Warn("failed to remove item file", "item", id, "link", link, "error", err)
		}
	}
	if err := s.Files.RemoveFolder(ctx, []string{item.Folder()}); err != nil {
		slog.Warn("failed to remove item folder", "item", id, "folder", item.Folder(), "error", err)
	}

	deleted, err := store.DeleteItem(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, ErrNotFound
	}
	return item, nil
}

// IsClientError reports whether err was caused by the request rather than
// by the store or the file store.
func IsClientError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr) || errors.Is(err, ErrNotFound)
}
