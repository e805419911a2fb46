package evergreen

var defaultEntries = []Entry{
	{Area: "East Village", Name: "Drinks at McSorley's Old Ale House", Venue: "McSorley's Old Ale House", Address: "15 E 7th St", Category: "nightlife"},
	{Area: "East Village", Name: "Late-night jazz at Mona's", Venue: "Mona's", Address: "224 Avenue B", Category: "live music", Price: "no cover"},
	{Area: "East Village", Name: "Cocktails at Please Don't Tell", Venue: "PDT", Address: "113 St Marks Pl", Category: "food & drink"},
	{Area: "Lower East Side", Name: "Shows at Rockwood Music Hall", Venue: "Rockwood Music Hall", Address: "196 Allen St", Category: "live music"},
	{Area: "Lower East Side", Name: "Pickles and a beer on Orchard Street", Venue: "Orchard Street", Category: "food & drink"},
	{Area: "West Village", Name: "Jazz at Smalls", Venue: "Smalls Jazz Club", Address: "183 W 10th St", Category: "live music"},
	{Area: "West Village", Name: "Stand-up at the Comedy Cellar", Venue: "Comedy Cellar", Address: "117 MacDougal St", Category: "comedy"},
	{Area: "Williamsburg", Name: "Arcade bar night at Barcade", Venue: "Barcade", Address: "388 Union Ave", Category: "nightlife"},
	{Area: "Williamsburg", Name: "Sunset at Domino Park", Venue: "Domino Park", Category: "community", Price: "free"},
	{Area: "Bushwick", Name: "Pizza and a show at Roberta's", Venue: "Roberta's", Address: "261 Moore St", Category: "food & drink"},
	{Area: "Bushwick", Name: "Street art walk around the Bushwick Collective", Venue: "Bushwick Collective", Address: "Troutman St & St Nicholas Ave", Category: "art", Price: "free"},
	{Area: "Midtown", Name: "Rooftop drinks near Bryant Park", Venue: "Bryant Park", Category: "nightlife"},
	{Area: "Chelsea", Name: "Evening walk on the High Line", Venue: "The High Line", Category: "community", Price: "free"},
	{Area: "Astoria", Name: "Beer garden at Bohemian Hall", Venue: "Bohemian Hall & Beer Garden", Address: "29-19 24th Ave", Category: "food & drink"},
}
