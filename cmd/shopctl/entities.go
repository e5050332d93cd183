package main

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"shop-admin-api/internal/client"
	"shop-admin-api/internal/models"
)

var customers = entity[models.Customer, models.CustomerInput, models.CustomerInput]{
	name:     "customers",
	singular: "customer",
	resource: func(c *client.Client) *client.Resource[models.Customer, models.CustomerInput, models.CustomerInput] {
		return c.Customers
	},
	id:    func(c models.Customer) string { return c.ID },
	label: func(c models.Customer) string { return c.Name },
	columns: []column[models.Customer]{
		{"id", func(c models.Customer) string { return c.ID }},
		{"name", func(c models.Customer) string { return c.Name }},
		{"phone", func(c models.Customer) string { return deref(c.Phone) }},
		{"email", func(c models.Customer) string { return deref(c.Email) }},
		{"address", func(c models.Customer) string { return deref(c.Address) }},
		{"created", func(c models.Customer) string { return day(c.CreatedAt) }},
	},
	hidden:      []string{"address"},
	dated:       true,
	createFlags: contactFlags[models.CustomerInput](func(f contactForm) models.CustomerInput { return models.CustomerInput(f) }),
}

var vendors = entity[models.Vendor, models.VendorInput, models.VendorInput]{
	name:     "vendors",
	singular: "vendor",
	resource: func(c *client.Client) *client.Resource[models.Vendor, models.VendorInput, models.VendorInput] {
		return c.Vendors
	},
	id:    func(v models.Vendor) string { return v.ID },
	label: func(v models.Vendor) string { return v.Name },
	columns: []column[models.Vendor]{
		{"id", func(v models.Vendor) string { return v.ID }},
		{"name", func(v models.Vendor) string { return v.Name }},
		{"phone", func(v models.Vendor) string { return deref(v.Phone) }},
		{"email", func(v models.Vendor) string { return deref(v.Email) }},
		{"address", func(v models.Vendor) string { return deref(v.Address) }},
		{"created", func(v models.Vendor) string { return day(v.CreatedAt) }},
	},
	hidden:      []string{"address"},
	dated:       true,
	createFlags: contactFlags[models.VendorInput](func(f contactForm) models.VendorInput { return models.VendorInput(f) }),
}

// contactForm has the fields shared by customers and vendors.
type contactForm struct {
	Shop    string  `json:"shop" validate:"required"`
	Name    string  `json:"name" validate:"required,max=255"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=512"`
	Notes   *string `json:"notes,omitempty"`
}

func contactFlags[C any](convert func(contactForm) C) func(*pflag.FlagSet) func(string) (C, error) {
	return func(fs *pflag.FlagSet) func(string) (C, error) {
		name := fs.String("name", "", "name")
		phone := fs.String("phone", "", "phone number")
		email := fs.String("email", "", "email address")
		address := fs.String("address", "", "postal address")
		notes := fs.String("notes", "", "notes")
		return func(shop string) (C, error) {
			return convert(contactForm{
				Shop:    shop,
				Name:    strings.TrimSpace(*name),
				Phone:   optional(*phone),
				Email:   optional(*email),
				Address: optional(*address),
				Notes:   optional(*notes),
			}), nil
		}
	}
}

var uoms = entity[models.UOM, models.UOMInput, models.UOMInput]{
	name:     "uoms",
	singular: "unit",
	resource: func(c *client.Client) *client.Resource[models.UOM, models.UOMInput, models.UOMInput] { return c.UOMs },
	id:       func(u models.UOM) string { return u.ID },
	label:    func(u models.UOM) string { return u.Name },
	columns: []column[models.UOM]{
		{"id", func(u models.UOM) string { return u.ID }},
		{"name", func(u models.UOM) string { return u.Name }},
		{"short", func(u models.UOM) string { return deref(u.ShortName) }},
	},
	createFlags: func(fs *pflag.FlagSet) func(string) (models.UOMInput, error) {
		name := fs.String("name", "", "unit name")
		short := fs.String("short", "", "short name, e.g. kg")
		return func(shop string) (models.UOMInput, error) {
			return models.UOMInput{Shop: shop, Name: strings.TrimSpace(*name), ShortName: optional(*short)}, nil
		}
	},
}

var inventory = entity[models.Inventory, models.InventoryInput, models.InventoryInput]{
	name:     "inventory",
	singular: "item",
	resource: func(c *client.Client) *client.Resource[models.Inventory, models.InventoryInput, models.InventoryInput] {
		return c.Inventory
	},
	id:    func(i models.Inventory) string { return i.ID },
	label: func(i models.Inventory) string { return i.Name },
	columns: []column[models.Inventory]{
		{"id", func(i models.Inventory) string { return i.ID }},
		{"name", func(i models.Inventory) string { return i.Name }},
		{"sku", func(i models.Inventory) string { return deref(i.SKU) }},
		{"quantity", func(i models.Inventory) string { return i.Quantity.String() }},
		{"uom", func(i models.Inventory) string { return deref(i.UOMName) }},
		{"price", func(i models.Inventory) string { return money(i.Price) }},
		{"cost", func(i models.Inventory) string { return money(i.CostPrice) }},
	},
	hidden:  []string{"cost"},
	filters: map[string]string{"uom": "uomId", "low-stock": "lowStock"},
	createFlags: func(fs *pflag.FlagSet) func(string) (models.InventoryInput, error) {
		name := fs.String("name", "", "item name")
		sku := fs.String("sku", "", "stock keeping unit")
		uom := fs.String("uom", "", "unit of measurement ID")
		qty := fs.String("quantity", "0", "quantity in stock")
		price := fs.String("price", "0", "sale price")
		cost := fs.String("cost", "0", "cost price")
		low := fs.String("low-stock", "", "low stock threshold")
		desc := fs.String("description", "", "description")
		return func(shop string) (models.InventoryInput, error) {
			in := models.InventoryInput{
				Shop: shop, Name: strings.TrimSpace(*name), SKU: optional(*sku), UOM: optional(*uom),
				Description: optional(*desc),
			}
			var err error
			if in.Quantity, err = parseAmount("quantity", *qty); err != nil {
				return in, err
			}
			if in.Price, err = parseAmount("price", *price); err != nil {
				return in, err
			}
			if in.CostPrice, err = parseAmount("cost", *cost); err != nil {
				return in, err
			}
			if *low != "" {
				d, err := parseAmount("low-stock", *low)
				if err != nil {
					return in, err
				}
				in.LowStockThreshold = &d
			}
			return in, nil
		}
	},
}

var expenses = entity[models.Expense, models.ExpenseInput, models.ExpenseInput]{
	name:     "expenses",
	singular: "expense",
	resource: func(c *client.Client) *client.Resource[models.Expense, models.ExpenseInput, models.ExpenseInput] {
		return c.Expenses
	},
	id:    func(e models.Expense) string { return e.ID },
	label: func(e models.Expense) string { return e.Title },
	columns: []column[models.Expense]{
		{"id", func(e models.Expense) string { return e.ID }},
		{"date", func(e models.Expense) string { return day(e.Date) }},
		{"title", func(e models.Expense) string { return e.Title }},
		{"category", func(e models.Expense) string { return deref(e.Category) }},
		{"amount", func(e models.Expense) string { return money(e.Amount) }},
	},
	filters: map[string]string{"category": "category"},
	dated:   true,
	createFlags: func(fs *pflag.FlagSet) func(string) (models.ExpenseInput, error) {
		title := fs.String("title", "", "what the money was spent on")
		category := fs.String("category", "", "category")
		amount := fs.String("amount", "", "amount")
		date := fs.String("date", "", "date YYYY-MM-DD (default today)")
		notes := fs.String("notes", "", "notes")
		return func(shop string) (models.ExpenseInput, error) {
			in := models.ExpenseInput{Shop: shop, Title: strings.TrimSpace(*title), Category: optional(*category), Notes: optional(*notes)}
			var err error
			if in.Amount, err = parseAmount("amount", *amount); err != nil {
				return in, err
			}
			in.Date, err = parseDay(*date)
			return in, err
		}
	},
}

var transactions = entity[models.Transaction, models.TransactionInput, models.TransactionInput]{
	name:     "transactions",
	singular: "transaction",
	resource: func(c *client.Client) *client.Resource[models.Transaction, models.TransactionInput, models.TransactionInput] {
		return c.Transactions
	},
	id:    func(t models.Transaction) string { return t.ID },
	label: func(t models.Transaction) string { return fmt.Sprintf("%s %s %s", t.Type, t.PartyName(), money(t.Amount)) },
	columns: []column[models.Transaction]{
		{"id", func(t models.Transaction) string { return t.ID }},
		{"date", func(t models.Transaction) string { return day(t.Date) }},
		{"type", func(t models.Transaction) string { return string(t.Type) }},
		{"party", func(t models.Transaction) string { return t.PartyName() }},
		{"items", func(t models.Transaction) string { return itoa(len(t.InventoryDetails)) }},
		{"amount", func(t models.Transaction) string { return money(t.Amount) }},
		{"advance", func(t models.Transaction) string { return money(t.Advance) }},
		{"paid", func(t models.Transaction) string { return money(t.Paid) }},
		{"pending", func(t models.Transaction) string { return money(t.Pending()) }},
		{"notes", func(t models.Transaction) string { return deref(t.Notes) }},
	},
	hidden:  []string{"advance", "notes"},
	filters: map[string]string{"type": "type", "customer": "customerId", "vendor": "vendorId"},
	dated:   true,
	createFlags: func(fs *pflag.FlagSet) func(string) (models.TransactionInput, error) {
		typ := fs.String("type", "", "purchase, sale or payment")
		customer := fs.String("customer", "", "customer ID")
		vendor := fs.String("vendor", "", "vendor ID")
		amount := fs.String("amount", "", "total amount (default: sum of the items)")
		advance := fs.String("advance", "0", "advance")
		paid := fs.String("paid", "0", "amount paid")
		date := fs.String("date", "", "date YYYY-MM-DD (default today)")
		notes := fs.String("notes", "", "notes")
		items := fs.StringArray("item", nil, "line item name:quantity:price[:inventoryId], repeatable")
		return func(shop string) (models.TransactionInput, error) {
			in := models.TransactionInput{
				Shop: shop, Type: models.TransactionType(*typ),
				Customer: optional(*customer), Vendor: optional(*vendor), Notes: optional(*notes),
			}
			var err error
			for _, raw := range *items {
				d, err := parseLineItem(raw)
				if err != nil {
					return in, err
				}
				in.InventoryDetails = append(in.InventoryDetails, d)
			}
			if *amount == "" {
				for _, d := range in.InventoryDetails {
					in.Amount = in.Amount.Add(d.LineTotal())
				}
			} else if in.Amount, err = parseAmount("amount", *amount); err != nil {
				return in, err
			}
			if in.Advance, err = parseAmount("advance", *advance); err != nil {
				return in, err
			}
			if in.Paid, err = parseAmount("paid", *paid); err != nil {
				return in, err
			}
			in.Date, err = parseDay(*date)
			return in, err
		}
	},
}

// parseLineItem reads name:quantity:price[:inventoryId].
func parseLineItem(raw string) (models.InventoryDetail, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return models.InventoryDetail{}, fmt.Errorf("invalid item %q, want name:quantity:price[:inventoryId]", raw)
	}
	d := models.InventoryDetail{Name: strings.TrimSpace(parts[0])}
	var err error
	if d.Quantity, err = decimal.NewFromString(strings.TrimSpace(parts[1])); err != nil {
		return d, fmt.Errorf("invalid quantity in item %q", raw)
	}
	if d.Price, err = decimal.NewFromString(strings.TrimSpace(parts[2])); err != nil {
		return d, fmt.Errorf("invalid price in item %q", raw)
	}
	if len(parts) == 4 {
		d.Inventory = optional(strings.TrimSpace(parts[3]))
	}
	return d, nil
}

var plans = entity[models.SubscriptionPlan, models.SubscriptionPlanInput, models.SubscriptionPlanInput]{
	name:     "plans",
	singular: "plan",
	resource: func(c *client.Client) *client.Resource[models.SubscriptionPlan, models.SubscriptionPlanInput, models.SubscriptionPlanInput] {
		return c.Plans
	},
	id:    func(p models.SubscriptionPlan) string { return p.ID },
	label: func(p models.SubscriptionPlan) string { return p.Name },
	columns: []column[models.SubscriptionPlan]{
		{"id", func(p models.SubscriptionPlan) string { return p.ID }},
		{"name", func(p models.SubscriptionPlan) string { return p.Name }},
		{"price", func(p models.SubscriptionPlan) string { return money(p.Price) }},
		{"days", func(p models.SubscriptionPlan) string { return itoa(p.DurationDays) }},
		{"shops", func(p models.SubscriptionPlan) string { return itoa(p.MaxShops) }},
		{"features", func(p models.SubscriptionPlan) string { return strings.Join(p.Features, ", ") }},
		{"active", func(p models.SubscriptionPlan) string { return fmt.Sprint(p.IsActive) }},
	},
	createFlags: func(fs *pflag.FlagSet) func(string) (models.SubscriptionPlanInput, error) {
		name := fs.String("name", "", "plan name")
		price := fs.String("price", "0", "price per period")
		days := fs.Int("days", 30, "period length in days")
		shops := fs.Int("max-shops", 1, "shops allowed")
		features := fs.StringSlice("features", nil, "feature flags")
		return func(string) (models.SubscriptionPlanInput, error) {
			in := models.SubscriptionPlanInput{Name: strings.TrimSpace(*name), DurationDays: *days, MaxShops: *shops, Features: *features}
			var err error
			in.Price, err = parseAmount("price", *price)
			return in, err
		}
	},
}

var users = entity[models.User, models.CreateUserRequest, models.UpdateUserRequest]{
	name:     "users",
	singular: "user",
	resource: func(c *client.Client) *client.Resource[models.User, models.CreateUserRequest, models.UpdateUserRequest] {
		return c.Users
	},
	id:    func(u models.User) string { return u.ID },
	label: func(u models.User) string { return u.Email },
	columns: []column[models.User]{
		{"id", func(u models.User) string { return u.ID }},
		{"email", func(u models.User) string { return u.Email }},
		{"name", func(u models.User) string { return deref(u.Name) }},
		{"roles", func(u models.User) string { return strings.Join(u.Roles, ", ") }},
		{"active", func(u models.User) string { return fmt.Sprint(u.IsActive) }},
	},
	createFlags: func(fs *pflag.FlagSet) func(string) (models.CreateUserRequest, error) {
		email := fs.String("email", "", "login email")
		password := fs.String("password", "", "initial password")
		name := fs.String("name", "", "display name")
		roles := fs.StringSlice("roles", []string{models.RoleStaff}, "roles: owner, staff")
		return func(string) (models.CreateUserRequest, error) {
			return models.CreateUserRequest{
				Email: strings.TrimSpace(*email), Password: *password, Name: optional(*name), Roles: *roles,
			}, nil
		}
	},
}
