// Package membersdk is the Go client for the membership service. It carries
// the wire types shared between the service's HTTP layer and external
// callers, the typed API error set, and a small bearer-token client.
//
// Typical use:
//
//	sdk := membersdk.NewSDKClient("https://membership.internal", token)
//	role, err := sdk.MyRole(ctx, clientID)
//	if err != nil {
//		var apiErr *membersdk.APIError
//		if errors.As(err, &apiErr) && apiErr.Code == membersdk.ErrorCodeNotAMember {
//			// caller has no access to this client
//		}
//		return err
//	}
package membersdk
