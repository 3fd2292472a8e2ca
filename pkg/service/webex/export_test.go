package webex

var NextLink = nextLink
