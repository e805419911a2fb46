package geo

var nycBoroughs = []Borough{
	{Name: "Manhattan", Default: "Midtown", Aliases: []string{"the city"}},
	{Name: "Brooklyn", Default: "Williamsburg", Aliases: []string{"bk", "bklyn"}},
	{Name: "Queens", Default: "Astoria"},
	{Name: "Bronx", Default: "Mott Haven", Aliases: []string{"the bronx"}},
}

var nycAreas = []Area{
	{Name: "East Village", Borough: "Manhattan", Center: Coord{40.7265, -73.9815}, RadiusKm: 1.0,
		Aliases: []string{"tompkins square", "tompkins square park", "st marks", "st marks place", "alphabet city", "astor place", "first avenue", "1st ave"}},
	{Name: "West Village", Borough: "Manhattan", Center: Coord{40.7358, -74.0036}, RadiusKm: 1.0,
		Aliases: []string{"greenwich village", "the village", "washington square", "washington square park", "christopher street", "west 4th", "w 4th st"}},
	{Name: "Lower East Side", Borough: "Manhattan", Center: Coord{40.7150, -73.9843}, RadiusKm: 0.9,
		Aliases: []string{"les", "delancey", "delancey street", "essex street", "orchard street"}},
	{Name: "SoHo", Borough: "Manhattan", Center: Coord{40.7233, -74.0030}, RadiusKm: 0.8,
		Aliases: []string{"spring street", "prince street", "nolita"}},
	{Name: "Tribeca", Borough: "Manhattan", Center: Coord{40.7163, -74.0086}, RadiusKm: 0.8,
		Aliases: []string{"franklin street", "chambers street"}},
	{Name: "Financial District", Borough: "Manhattan", Center: Coord{40.7075, -74.0113}, RadiusKm: 0.9,
		Aliases: []string{"fidi", "wall street", "south street seaport", "fulton street"}},
	{Name: "Chelsea", Borough: "Manhattan", Center: Coord{40.7465, -74.0014}, RadiusKm: 1.0,
		Aliases: []string{"high line", "chelsea market", "hudson yards", "23rd street"}},
	{Name: "Midtown", Borough: "Manhattan", Center: Coord{40.7549, -73.9840}, RadiusKm: 1.5,
		Aliases: []string{"times square", "bryant park", "herald square", "penn station", "grand central", "hells kitchen"}},
	{Name: "Upper West Side", Borough: "Manhattan", Center: Coord{40.7870, -73.9754}, RadiusKm: 1.5,
		Aliases: []string{"uws", "lincoln center", "72nd street"}},
	{Name: "Upper East Side", Borough: "Manhattan", Center: Coord{40.7736, -73.9566}, RadiusKm: 1.5,
		Aliases: []string{"ues", "museum mile", "the met", "86th street"}},
	{Name: "Harlem", Borough: "Manhattan", Center: Coord{40.8116, -73.9465}, RadiusKm: 1.5,
		Aliases: []string{"the apollo", "125th street", "marcus garvey park"}},
	{Name: "Williamsburg", Borough: "Brooklyn", Center: Coord{40.7081, -73.9571}, RadiusKm: 1.3,
		Aliases: []string{"wburg", "bedford avenue", "bedford ave", "domino park", "marcy avenue"}},
	{Name: "Greenpoint", Borough: "Brooklyn", Center: Coord{40.7305, -73.9515}, RadiusKm: 1.0,
		Aliases: []string{"nassau avenue", "mccarren park", "manhattan avenue"}},
	{Name: "Bushwick", Borough: "Brooklyn", Center: Coord{40.6944, -73.9213}, RadiusKm: 1.3,
		Aliases: []string{"jefferson street", "morgan avenue", "maria hernandez park"}},
	{Name: "DUMBO", Borough: "Brooklyn", Center: Coord{40.7033, -73.9881}, RadiusKm: 0.6,
		Aliases: []string{"brooklyn bridge park", "york street"}},
	{Name: "Fort Greene", Borough: "Brooklyn", Center: Coord{40.6892, -73.9742}, RadiusKm: 0.8,
		Aliases: []string{"bam", "barclays center", "atlantic terminal"}},
	{Name: "Bed-Stuy", Borough: "Brooklyn", Center: Coord{40.6872, -73.9418}, RadiusKm: 1.3,
		Aliases: []string{"bed stuy", "bedford stuyvesant", "nostrand avenue"}},
	{Name: "Park Slope", Borough: "Brooklyn", Center: Coord{40.6710, -73.9814}, RadiusKm: 1.0,
		Aliases: []string{"prospect park", "grand army plaza", "7th avenue"}},
	{Name: "Crown Heights", Borough: "Brooklyn", Center: Coord{40.6694, -73.9422}, RadiusKm: 1.2,
		Aliases: []string{"franklin avenue", "brooklyn museum"}},
	{Name: "Astoria", Borough: "Queens", Center: Coord{40.7644, -73.9235}, RadiusKm: 1.3,
		Aliases: []string{"ditmars", "steinway street", "astoria park"}},
	{Name: "Long Island City", Borough: "Queens", Center: Coord{40.7447, -73.9485}, RadiusKm: 1.0,
		Aliases: []string{"lic", "court square", "gantry plaza"}},
	{Name: "Ridgewood", Borough: "Queens", Center: Coord{40.7043, -73.9018}, RadiusKm: 1.0,
		Aliases: []string{"myrtle wyckoff", "fresh pond road"}},
	{Name: "Jackson Heights", Borough: "Queens", Center: Coord{40.7557, -73.8831}, RadiusKm: 1.2,
		Aliases: []string{"roosevelt avenue", "74th street"}},
	{Name: "Mott Haven", Borough: "Bronx", Center: Coord{40.8091, -73.9229}, RadiusKm: 1.2,
		Aliases: []string{"south bronx", "third avenue 138th"}},
}

// Default returns the built-in New York registry.
func Default(opts ...Option) *Registry {
	r, err := NewRegistry(nycAreas, nycBoroughs, opts...)
	if err != nil {
		panic("geo: built-in registry invalid: " + err.Error())
	}
	return r
}
