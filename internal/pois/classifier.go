package pois

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CategoryOther is assigned when no rule matches
const CategoryOther = "other"

// MatchMode controls how a rule's keywords are compared with a place's type strings
type MatchMode string

const (
	// MatchExact compares whole type strings (Google Places types)
	MatchExact MatchMode = "exact"
	// MatchSubstring looks for the keyword inside each lowercased value (OSM tags)
	MatchSubstring MatchMode = "substring"
)

// CategoryRule maps a set of keywords to a category
type CategoryRule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// Classifier assigns exactly one category per place. Rules are evaluated in
// order and the first match wins.
type Classifier struct {
	Mode  MatchMode
	Rules []CategoryRule
}

// NewClassifier builds a classifier over an ordered rule table
func NewClassifier(mode MatchMode, rules []CategoryRule) *Classifier {
	return &Classifier{Mode: mode, Rules: rules}
}

// Classify returns the category of the first rule with a keyword matching any value
func (c *Classifier) Classify(values []string) string {
	if c == nil || len(values) == 0 {
		return CategoryOther
	}

	normalized := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			normalized = append(normalized, v)
		}
	}

	for _, rule := range c.Rules {
		for _, kw := range rule.Keywords {
			kw = strings.ToLower(kw)
			for _, v := range normalized {
				if c.matches(v, kw) {
					return rule.Category
				}
			}
		}
	}
	return CategoryOther
}

func (c *Classifier) matches(value, keyword string) bool {
	if c.Mode == MatchSubstring {
		return strings.Contains(value, keyword)
	}
	return value == keyword
}

// RuleSet is the on-disk form of both rule tables
type RuleSet struct {
	Google []CategoryRule `yaml:"google"`
	OSM    []CategoryRule `yaml:"osm"`
}

// LoadRules reads a YAML rule file. Either table may be omitted, in which
// case the default is kept.
func LoadRules(path string) (RuleSet, error) {
	set := RuleSet{Google: DefaultGoogleRules(), OSM: DefaultOSMRules()}

	data, err := os.ReadFile(path)
	if err != nil {
		return set, fmt.Errorf("read category rules: %w", err)
	}

	var override RuleSet
	if err := yaml.Unmarshal(data, &override); err != nil {
		return set, fmt.Errorf("parse category rules %s: %w", path, err)
	}
	for _, rules := range [][]CategoryRule{override.Google, override.OSM} {
		for i, r := range rules {
			if r.Category == "" || len(r.Keywords) == 0 {
				return set, fmt.Errorf("category rule %d in %s needs a category and keywords", i, path)
			}
		}
	}

	if len(override.Google) > 0 {
		set.Google = override.Google
	}
	if len(override.OSM) > 0 {
		set.OSM = override.OSM
	}
	return set, nil
}

// DefaultGoogleRules is the ordered table for Google Places types
func DefaultGoogleRules() []CategoryRule {
	return []CategoryRule{
		{"nightlife", []string{"bar", "night_club", "casino", "liquor_store"}},
		{"dating", []string{"movie_theater", "park"}},
		{"work_money", []string{"bank", "atm", "insurance_agency", "real_estate_agency", "coworking_space", "office", "accounting", "lawyer"}},
		{"shopping_fashion", []string{"shopping_mall", "store", "supermarket", "convenience_store", "clothing_store", "shoe_store", "jewelry_store", "department_store", "beauty_salon", "hair_salon"}},
		{"travel_tourism", []string{"airport", "bus_station", "train_station", "subway_station", "taxi_stand", "car_rental", "hotel", "motel", "resort_hotel", "guest_house", "bed_and_breakfast", "tourist_attraction", "landmark", "amusement_park", "zoo", "museum", "art_gallery", "travel_agency"}},
		{"health_wellness", []string{"gym", "fitness_center", "spa", "doctor", "hospital", "pharmacy", "dentist", "mental_health", "therapy_center", "nutritionist", "physiotherapist"}},
		{"education_school", []string{"school", "university", "college", "library", "primary_school", "secondary_school", "preschool", "student_dormitory", "book_store", "tutoring_center"}},
		{"family_parenting", []string{"playground", "child_care", "preschool", "family_center", "toy_store", "baby_store", "amusement_park"}},
		{"outdoor_nature", []string{"park", "national_park", "state_park", "campground", "hiking_area", "botanical_garden", "beach", "lake", "water_park", "picnic_ground"}},
		{"faith_spirituality", []string{"church", "mosque", "synagogue", "hindu_temple", "place_of_worship"}},
		{"crime_law", []string{"police", "lawyer", "fire_station", "jail", "court_house"}},
		{"entertainment", []string{"movie_theater", "bowling_alley", "stadium", "theater", "concert_hall", "performing_arts_theater", "video_arcade", "escape_room", "event_venue"}},
		{"sports", []string{"sports_complex", "swimming_pool", "golf_course", "athletic_field", "sports_club", "skate_park", "tennis_court", "basketball_court", "shooting_range"}},
		{"vehicles", []string{"gas_station", "car_rental", "car_repair", "car_wash", "motorcycle_dealer", "bicycle_store", "electric_vehicle_charging_station"}},
		{"food_drinks", []string{"food_court", "fast_food_restaurant", "coffee_shop", "ice_cream_shop", "diner", "pizza_restaurant", "sushi_restaurant", "barbecue_restaurant", "steak_house", "seafood_restaurant", "thai_restaurant", "mexican_restaurant", "indian_restaurant", "chinese_restaurant", "japanese_restaurant", "mediterranean_restaurant", "american_restaurant", "bakery", "cafe", "restaurant"}},
		{"tech_gadgets", []string{"electronics_store", "computer_store", "mobile_phone_store", "gaming_store", "repair_service"}},
		{"pets_animals", []string{"pet_store", "veterinary_care", "animal_shelter", "dog_park"}},
		{"home_living", []string{"hardware_store", "furniture_store", "home_goods_store", "garden_center", "appliance_store", "lighting_store", "interior_design_store"}},
		{"events_parties", []string{"event_venue", "wedding_venue", "conference_center", "convention_center"}},
		{"transportation", []string{"bus_station", "train_station", "subway_station", "taxi_stand", "parking", "transit_station", "airport"}},
		{"internet_services", []string{"internet_cafe", "co_working_space", "post_office"}},
		{"government_services", []string{"city_hall", "embassy", "courthouse"}},
		{"emergency_services", []string{"hospital", "police", "fire_station"}},
		{"community_social", []string{"community_center", "youth_center", "senior_center"}},
		{"media_communications", []string{"news_agency", "tv_station", "radio_station"}},
	}
}

// DefaultOSMRules is the ordered table for OpenStreetMap tag values
func DefaultOSMRules() []CategoryRule {
	return []CategoryRule{
		{"nightlife", []string{"bar", "pub", "nightclub", "casino"}},
		{"dating", []string{"cinema", "park", "cafe"}},
		{"work_money", []string{"bank", "atm", "office", "coworking_space"}},
		{"shopping_fashion", []string{"clothes", "shoes", "jewelry", "mall", "department_store", "supermarket"}},
		{"travel_tourism", []string{"hotel", "motel", "guest_house", "attraction", "museum", "gallery"}},
		{"health_wellness", []string{"gym", "fitness_centre", "spa", "hospital", "pharmacy", "doctors"}},
		{"education_school", []string{"school", "university", "college", "library"}},
		{"family_parenting", []string{"playground", "kindergarten", "toy_shop"}},
		{"outdoor_nature", []string{"park", "garden", "nature_reserve", "beach"}},
		{"faith_spirituality", []string{"place_of_worship", "church", "mosque", "temple"}},
		{"entertainment", []string{"cinema", "theatre", "concert_hall", "stadium"}},
		{"sports", []string{"sports_centre", "swimming_pool", "golf_course", "tennis_court"}},
		{"food_drinks", []string{"restaurant", "cafe", "fast_food", "bar", "pub"}},
		{"tech_gadgets", []string{"electronics", "computer", "mobile_phone"}},
		{"pets_animals", []string{"pet", "veterinary", "pet_shop"}},
		{"home_living", []string{"furniture", "hardware", "garden_centre"}},
	}
}
