package generation

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-trip-planner/internal/categories"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const systemInstruction = "You are a travel itinerary planner. Generate a detailed day-by-day itinerary in JSON. " +
	"Only output the JSON string and no other text."

const itineraryShape = `{
  "Day 1": {
    "Morning": {
      "POI": {
        "<place_id>": {
          "name": "Cafe Name",
          "type": "restaurant",
          "StartTime": "8:00",
          "EndTime": "9:00",
          "coordinates": {"lat": 53.4808, "lng": -2.2426}
        }
      }
    },
    "Afternoon": {"POI": {}},
    "Evening": {"POI": {}}
  },
  "Unused": {
    "Attractions": [{"place_id": "id_1", "name": "attraction name"}],
    "Restaurants": [{"place_id": "id_2", "name": "restaurant name"}]
  }
}`

func poiLines(pois []types.POI, kind string) string {
	var b strings.Builder
	for _, p := range pois {
		fmt.Fprintf(&b, "- ID: %s, %s (%s) - Located at lat: %.5f, lng: %.5f\n",
			p.Key(), p.Name, kind, p.Coordinates.Lat, p.Coordinates.Lng)
	}
	return b.String()
}

func bulletSection(title, empty string, items []string) string {
	if len(items) == 0 {
		return empty
	}
	return title + ":\n- " + strings.Join(items, "\n- ")
}

// buildPrompt renders the itinerary request for the model. days is the
// already normalised trip length.
func buildPrompt(req types.GenerateTripRequest, days int, m categories.Mappings) string {
	td := req.TripData
	dateInfo := fmt.Sprintf("for %d days", days)
	if td.FromDT != nil && td.ToDT != nil {
		dateInfo = fmt.Sprintf("from %s to %s", td.FromDT.Format("2006-01-02"), td.ToDT.Format("2006-01-02"))
	}

	attractions := "No attractions selected"
	if len(req.AttractionPOIs) > 0 {
		attractions = "Selected Attractions:\n" + poiLines(req.AttractionPOIs, "Attraction")
	}
	restaurants := "No restaurants selected"
	if len(req.FoodPOIs) > 0 {
		restaurants = "Selected Restaurants:\n" + poiLines(req.FoodPOIs, "Restaurant")
	}
	interests := td.AllInterests()
	food := td.AllFoodPreferences()

	var b strings.Builder
	fmt.Fprintf(&b, "Create a detailed %d-day itinerary for %s, %s %s.\n\n", days, td.City, td.Country, dateInfo)
	fmt.Fprintf(&b, "%s\n\n%s\n\n", attractions, restaurants)
	fmt.Fprintf(&b, "%s\n\n", bulletSection("User Interests", "No specific interests", interests))
	fmt.Fprintf(&b, "%s\n\n", bulletSection("Food Preferences", "No specific food preferences", food))
	fmt.Fprintf(&b, "Preferred place categories: attractions %s; food %s.\n\n", m.AttractionCategories, m.FoodCategories)
	fmt.Fprintf(&b, "1. Return valid JSON with exactly this structure, one \"Day N\" key per day from 1 to %d:\n%s\n\n", days, itineraryShape)
	b.WriteString(`2. Rules:
- Use the IDs listed above as place_id. For places you add yourself use "suggested_1", "suggested_2", etc.
- Each Morning starts with a cafe; each Afternoon and Evening starts with a restaurant.
- Do not repeat a place and do not overlap timings.
- Selected places that do not fit the schedule go in "Unused".
- Every activity lies between 8:00 and 23:00. Morning is 8:00-12:00, Afternoon 12:00-17:00, Evening from 17:00.
- Times use 24 hour H:MM format.
- Assume 15 minutes of walking per kilometre between places and group nearby places together.
`)
	if len(interests) > 0 || len(food) > 0 {
		fmt.Fprintf(&b, "- Suggested attractions match: %s. Suggested restaurants match: %s.\n",
			strings.Join(interests, ", "), strings.Join(food, ", "))
	}
	return b.String()
}
