//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of cupofmud.
//
// cupofmud is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// cupofmud is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with cupofmud. If not, see https://www.gnu.org/licenses/.

package coffee

import "github.com/aaronlmathis/cupofmud/schema"

// Column names used by the transform.
const (
	ColID                    = "ID"
	ColCountry               = "Country of Origin"
	ColCompany               = "Company"
	ColAltitude              = "Altitude"
	ColNumberOfBags          = "Number of Bags"
	ColBagWeight             = "Bag Weight"
	ColAroma                 = "Aroma"
	ColBody                  = "Body"
	ColBagWeightNormalized   = "Bag Weight Normalized"
	ColTotalProductionWeight = "Total Production Weight"
)

// BagWeightSuffix is the unit suffix of every Bag Weight value.
const BagWeightSuffix = " kg"

// InputSchema is the declared schema of the arabica CSV, in file order.
var InputSchema = schema.MustNew(
	schema.Column{Name: ColID, Kind: schema.Int64},
	schema.Column{Name: ColCountry, Kind: schema.Categorical},
	schema.Column{Name: "Farm Name", Kind: schema.Categorical},
	schema.Column{Name: "Lot Number", Kind: schema.Categorical},
	schema.Column{Name: "Mill", Kind: schema.Categorical},
	schema.Column{Name: "ICO Number", Kind: schema.Categorical},
	schema.Column{Name: ColCompany, Kind: schema.Categorical},
	schema.Column{Name: ColAltitude, Kind: schema.Categorical},
	schema.Column{Name: "Region", Kind: schema.Categorical},
	schema.Column{Name: "Producer", Kind: schema.Categorical},
	schema.Column{Name: ColNumberOfBags, Kind: schema.Int64},
	// text because of the unit suffix
	schema.Column{Name: ColBagWeight, Kind: schema.Utf8},
	schema.Column{Name: "In-Country Partner", Kind: schema.Categorical},
	// text because some values span two years, e.g. "2013 / 2014"
	schema.Column{Name: "Harvest Year", Kind: schema.Utf8},
	schema.Column{Name: "Grading Date", Kind: schema.Utf8},
	schema.Column{Name: "Owner", Kind: schema.Categorical},
	schema.Column{Name: "Variety", Kind: schema.Categorical},
	schema.Column{Name: "Status", Kind: schema.Categorical},
	schema.Column{Name: "Processing Method", Kind: schema.Categorical},
	schema.Column{Name: ColAroma, Kind: schema.Float64},
	schema.Column{Name: "Flavor", Kind: schema.Float64},
	schema.Column{Name: "Aftertaste", Kind: schema.Float64},
	schema.Column{Name: "Acidity", Kind: schema.Float64},
	schema.Column{Name: ColBody, Kind: schema.Float64},
	schema.Column{Name: "Balance", Kind: schema.Float64},
	schema.Column{Name: "Uniformity", Kind: schema.Float64},
	schema.Column{Name: "Clean Cup", Kind: schema.Float64},
	schema.Column{Name: "Sweetness", Kind: schema.Float64},
	schema.Column{Name: "Overall", Kind: schema.Float64},
	schema.Column{Name: "Defects", Kind: schema.Float64},
	schema.Column{Name: "Total Cup Points", Kind: schema.Float64},
	schema.Column{Name: "Moisture Percentage", Kind: schema.Float64},
	schema.Column{Name: "Category One Defects", Kind: schema.Int64},
	schema.Column{Name: "Quakers", Kind: schema.Int64},
	schema.Column{Name: "Color", Kind: schema.Categorical},
	schema.Column{Name: "Category Two Defects", Kind: schema.Int64},
	schema.Column{Name: "Expiration", Kind: schema.Utf8},
	schema.Column{Name: "Certification Body", Kind: schema.Categorical},
	schema.Column{Name: "Certification Address", Kind: schema.Categorical},
	schema.Column{Name: "Certification Contact", Kind: schema.Categorical},
)

// OutputSchema is the schema of the curated table, in output order.
var OutputSchema = schema.MustNew(
	schema.Column{Name: ColID, Kind: schema.Int64},
	schema.Column{Name: ColCompany, Kind: schema.Categorical},
	schema.Column{Name: ColCountry, Kind: schema.Categorical},
	schema.Column{Name: ColTotalProductionWeight, Kind: schema.Float64},
	schema.Column{Name: ColAltitude, Kind: schema.Categorical},
	schema.Column{Name: ColAroma, Kind: schema.Float64},
	schema.Column{Name: ColBody, Kind: schema.Float64},
)

// OutputColumns returns the curated column names in order.
func OutputColumns() []string {
	return OutputSchema.Names()
}

// categoricalColumns returns the names of the Categorical columns of s.
func categoricalColumns(s *schema.Schema) []string {
	var names []string
	for _, c := range s.Columns() {
		if c.Kind == schema.Categorical {
			names = append(names, c.Name)
		}
	}
	return names
}
