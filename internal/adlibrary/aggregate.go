package adlibrary

// Aggregate folds a sequence of raw ad records into per-advertiser views,
// keyed by advertiser display name. The first record seen for a name seeds
// the page URL; every record is appended in arrival order and counted as
// active.
//
// Keying by free-text display name is a known fragility: two distinct
// sellers with the same name collide, and minor name variants are treated
// as distinct advertisers. The inventory source does not reliably expose a
// stable advertiser ID, so the name is the best available key.
func Aggregate(ads []Ad) map[string]*Advertiser {
	out := make(map[string]*Advertiser)
	for _, ad := range ads {
		adv, ok := out[ad.AdvertiserName]
		if !ok {
			adv = &Advertiser{
				Name:    ad.AdvertiserName,
				PageURL: ad.AdvertiserPageURL,
			}
			out[ad.AdvertiserName] = adv
		}
		adv.Ads = append(adv.Ads, ad)
		adv.ActiveAdsCount++
	}
	return out
}
