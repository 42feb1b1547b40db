// internal/resource/schema_test.go
//
// Schemas shared by the resource tests.  They are trimmed copies of the
// shipped ones so the expected SQL stays short.

package resource

import "testing"

const aboutStatsYAML = `
name: about-stats
table: about_stats
title: About stat
ordered: true
visibility: is_active
public: true
fields:
  - name: value
    type: text
    validate: required,max=50
  - name: label
    type: text
    validate: required,max=100
`

const itinerariesYAML = `
name: itineraries
table: itineraries
title: Itinerary
ordered: true
visibility: is_active
public: true
fields:
  - name: title
    type: text
    validate: required,max=200
  - name: slug
    type: slug
    from: title
    validate: omitempty,max=100
  - name: duration_days
    label: duration
    type: int
    validate: omitempty,gte=1,lte=60
  - name: price_from
    label: price
    type: decimal
    validate: omitempty,gte=0
children:
  - name: days
    table: itinerary_days
    foreign_key: itinerary_id
    order: day_number ASC
    fields:
      - name: day_number
        label: day number
        type: int
        validate: required,gte=1,lte=60
      - name: title
        type: text
        validate: required
`

const bookingsYAML = `
name: bookings
table: bookings
title: Booking
order: created_at DESC
fields:
  - name: tour_package_id
    label: tour package
    type: ref
    ref:
      table: tour_packages
      label: title
      as: tour_package_title
      missing: Package deleted
  - name: full_name
    label: full name
    type: text
    validate: required,max=150
  - name: email
    type: email
    validate: required,email
  - name: status
    type: enum
    options: [pending, confirmed, cancelled]
    default: pending
    admin_only: true
  - name: client_ip
    type: text
    read_only: true
`

const usersYAML = `
name: users
table: users
title: User
role: admin
fields:
  - name: name
    type: text
    validate: required,max=100
  - name: email
    type: email
    unique: true
    validate: required,email
  - name: password
    type: password
    validate: required,min=8
  - name: notify_bookings
    label: notify bookings
    type: bool
    default: false
`

const packagesYAML = `
name: tour-packages
table: tour_packages
title: Tour package
ordered: true
visibility: published_at
public: true
fields:
  - name: title
    type: text
    validate: required
`

func mustParse(t *testing.T, src string) *Definition {
	t.Helper()
	d, err := Parse([]byte(src), t.Name())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return d
}
