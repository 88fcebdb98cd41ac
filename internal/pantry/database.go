package pantry

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	productsBucket   = "products"
	categoriesBucket = "categories"
	brandsBucket     = "brands"
	unitsBucket      = "units"
	pantryBucket     = "pantry_items"
	receiptsBucket   = "fiscal_receipts"
)

var allBuckets = []string{
	productsBucket,
	categoriesBucket,
	brandsBucket,
	unitsBucket,
	pantryBucket,
	receiptsBucket,
}

// DB defines the interface for the local cache. List methods return rows
// ordered by ID.
type DB interface {
	SaveProduct(product *Product) error
	GetProduct(id string) (*Product, error)
	// ListProducts returns the products owned by userID
	ListProducts(userID string) ([]*Product, error)
	// ListAllProducts returns the products of every user
	ListAllProducts() ([]*Product, error)
	DeleteProduct(id string) error

	SaveCategory(category *Category) error
	GetCategory(id string) (*Category, error)
	ListCategories() ([]*Category, error)
	DeleteCategory(id string) error

	SaveBrand(brand *Brand) error
	GetBrand(id string) (*Brand, error)
	ListBrands() ([]*Brand, error)
	DeleteBrand(id string) error

	SaveUnit(unit *MeasurementUnit) error
	GetUnit(id string) (*MeasurementUnit, error)
	ListUnits() ([]*MeasurementUnit, error)
	DeleteUnit(id string) error

	SavePantryItem(item *PantryItem) error
	GetPantryItem(id string) (*PantryItem, error)
	ListPantryItems(userID string) ([]*PantryItem, error)
	DeletePantryItem(id string) error

	SaveFiscalReceipt(receipt *FiscalReceipt) error
	GetFiscalReceipt(id string) (*FiscalReceipt, error)
	ListFiscalReceipts(userID string) ([]*FiscalReceipt, error)
	DeleteFiscalReceipt(id string) error

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB opens the database file and creates any missing buckets
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

func (b *BoltDB) put(bucket, id string, v any) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshaling %s: %w", bucket, err)
		}
		return tx.Bucket([]byte(bucket)).Put([]byte(id), data)
	})
}

func (b *BoltDB) get(bucket, kind, id string, v any) error {
	return b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucket)).Get([]byte(id))
		if data == nil {
			return notFound(kind, id)
		}
		return json.Unmarshal(data, v)
	})
}

func (b *BoltDB) remove(bucket, id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Delete([]byte(id))
	})
}

// list decodes every value of a bucket in key order, keeping those accepted
// by keep
func list[T any](b *BoltDB, bucket string, keep func(*T) bool) ([]*T, error) {
	out := make([]*T, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucket)).ForEach(func(k, v []byte) error {
			var row T
			if err := json.Unmarshal(v, &row); err != nil {
				return fmt.Errorf("unmarshaling %s %s: %w", bucket, k, err)
			}
			if keep == nil || keep(&row) {
				out = append(out, &row)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *BoltDB) SaveProduct(product *Product) error {
	return b.put(productsBucket, product.ID, product)
}

func (b *BoltDB) GetProduct(id string) (*Product, error) {
	var p *Product
	if err := b.get(productsBucket, "product", id, &p); err != nil {
		return nil, err
	}
	return p, nil
}

func (b *BoltDB) ListProducts(userID string) ([]*Product, error) {
	return list(b, productsBucket, func(p *Product) bool { return p.UserID == userID })
}

func (b *BoltDB) ListAllProducts() ([]*Product, error) {
	return list[Product](b, productsBucket, nil)
}

func (b *BoltDB) DeleteProduct(id string) error {
	return b.remove(productsBucket, id)
}

func (b *BoltDB) SaveCategory(category *Category) error {
	return b.put(categoriesBucket, category.ID, category)
}

func (b *BoltDB) GetCategory(id string) (*Category, error) {
	var c *Category
	if err := b.get(categoriesBucket, "category", id, &c); err != nil {
		return nil, err
	}
	return c, nil
}

func (b *BoltDB) ListCategories() ([]*Category, error) {
	return list[Category](b, categoriesBucket, nil)
}

func (b *BoltDB) DeleteCategory(id string) error {
	return b.remove(categoriesBucket, id)
}

func (b *BoltDB) SaveBrand(brand *Brand) error {
	return b.put(brandsBucket, brand.ID, brand)
}

func (b *BoltDB) GetBrand(id string) (*Brand, error) {
	var br *Brand
	if err := b.get(brandsBucket, "brand", id, &br); err != nil {
		return nil, err
	}
	return br, nil
}

func (b *BoltDB) ListBrands() ([]*Brand, error) {
	return list[Brand](b, brandsBucket, nil)
}

func (b *BoltDB) DeleteBrand(id string) error {
	return b.remove(brandsBucket, id)
}

func (b *BoltDB) SaveUnit(unit *MeasurementUnit) error {
	return b.put(unitsBucket, unit.ID, unit)
}

func (b *BoltDB) GetUnit(id string) (*MeasurementUnit, error) {
	var u *MeasurementUnit
	if err := b.get(unitsBucket, "unit", id, &u); err != nil {
		return nil, err
	}
	return u, nil
}

func (b *BoltDB) ListUnits() ([]*MeasurementUnit, error) {
	return list[MeasurementUnit](b, unitsBucket, nil)
}

func (b *BoltDB) DeleteUnit(id string) error {
	return b.remove(unitsBucket, id)
}

func (b *BoltDB) SavePantryItem(item *PantryItem) error {
	return b.put(pantryBucket, item.ID, item)
}

func (b *BoltDB) GetPantryItem(id string) (*PantryItem, error) {
	var it *PantryItem
	if err := b.get(pantryBucket, "pantry item", id, &it); err != nil {
		return nil, err
	}
	return it, nil
}

func (b *BoltDB) ListPantryItems(userID string) ([]*PantryItem, error) {
	return list(b, pantryBucket, func(it *PantryItem) bool { return it.UserID == userID })
}

func (b *BoltDB) DeletePantryItem(id string) error {
	return b.remove(pantryBucket, id)
}

func (b *BoltDB) SaveFiscalReceipt(receipt *FiscalReceipt) error {
	return b.put(receiptsBucket, receipt.ID, receipt)
}

func (b *BoltDB) GetFiscalReceipt(id string) (*FiscalReceipt, error) {
	var r *FiscalReceipt
	if err := b.get(receiptsBucket, "fiscal receipt", id, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func (b *BoltDB) ListFiscalReceipts(userID string) ([]*FiscalReceipt, error) {
	return list(b, receiptsBucket, func(r *FiscalReceipt) bool { return r.UserID == userID })
}

func (b *BoltDB) DeleteFiscalReceipt(id string) error {
	return b.remove(receiptsBucket, id)
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
