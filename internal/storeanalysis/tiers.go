package storeanalysis

import "github.com/sells-group/salesdash/internal/model"

var tierCities = map[string][]string{
	model.Tier1: {
		"Mumbai", "New Delhi", "Kolkata", "Chennai", "Bangalore", "Hyderabad", "Pune", "Ahmedabad",
	},
	model.Tier2: {
		"Jaipur", "Lucknow", "Chandigarh", "Nagpur", "Surat", "Visakhapatnam", "Patna", "Bhopal",
		"Vadodara", "Coimbatore",
	},
	model.Tier3: {
		"Agartala", "Durgapur", "Rourkela", "Korba", "Gangtok", "Manali", "Haridwar",
		"Thiruvananthapuram", "Jorhat", "Jowai", "Mangalore", "Gwalior", "Hubli", "Tawang", "Ranchi",
		"Jabalpur", "Udaipur", "Dhanbad", "Sambalpur", "Howrah", "Tirupati", "Silvassa", "Ambala",
		"Prayagraj", "Karimnagar", "Puducherry", "Bhubaneswar", "Dehradun", "Guwahati", "Shillong",
		"Shimla", "Nainital", "Mysore", "Kota", "Srinagar", "Amritsar", "Varanasi", "Ujjain",
	},
}

var cityTier = func() map[string]string {
	m := make(map[string]string)
	for tier, cities := range tierCities {
		for _, c := range cities {
			m[c] = tier
		}
	}
	return m
}()

// TierOf returns the tier of city. Matching is exact; cities outside the
// table are Tier 3.
func TierOf(city string) string {
	if t, ok := cityTier[city]; ok {
		return t
	}
	return model.Tier3
}
